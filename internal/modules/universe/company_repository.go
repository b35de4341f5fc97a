package universe

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/database"
)

// CompanyRepository persists the company directory in universe.db
type CompanyRepository struct {
	universeDB *sql.DB
	log        zerolog.Logger
}

const companiesColumns = `ticker, name, sector, market_cap`

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(universeDB *sql.DB, log zerolog.Logger) *CompanyRepository {
	return &CompanyRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "company").Logger(),
	}
}

// GetAll returns every company ordered by ticker
func (r *CompanyRepository) GetAll() ([]Company, error) {
	rows, err := r.universeDB.Query("SELECT " + companiesColumns + " FROM companies ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.Ticker, &c.Name, &c.Sector, &c.MarketCap); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}
	return companies, nil
}

// GetByTicker returns a company or nil when the ticker is unknown
func (r *CompanyRepository) GetByTicker(ticker string) (*Company, error) {
	var c Company
	err := r.universeDB.QueryRow(
		"SELECT "+companiesColumns+" FROM companies WHERE ticker = ?",
		NormalizeTicker(ticker),
	).Scan(&c.Ticker, &c.Name, &c.Sector, &c.MarketCap)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", ticker, err)
	}
	return &c, nil
}

// UpsertAll inserts or replaces companies in a single transaction
func (r *CompanyRepository) UpsertAll(companies []Company) error {
	now := time.Now().Unix()
	err := database.WithTransaction(r.universeDB, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO companies (ticker, name, sector, market_cap, updated_at)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range companies {
			ticker := NormalizeTicker(c.Ticker)
			if ticker == "" {
				continue
			}
			if _, err := stmt.Exec(ticker, c.Name, c.Sector, c.MarketCap, now); err != nil {
				return fmt.Errorf("failed to upsert %s: %w", ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Int("count", len(companies)).Msg("Company directory stored")
	return nil
}

// Count returns the number of stored companies
func (r *CompanyRepository) Count() (int, error) {
	var n int
	if err := r.universeDB.QueryRow("SELECT COUNT(*) FROM companies").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return n, nil
}

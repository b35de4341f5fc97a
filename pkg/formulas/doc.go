// Package formulas holds the small numerical helpers shared by the analytics code.
package formulas

// Package confidence turns detector hits into a bounded score.
package confidence

const (
	Base     = 0.3
	PerField = 0.14
	Max      = 0.99

	// Tabular is used when fields were read from named columns, not guessed.
	Tabular = 0.99
)

// Text scores a text-detector result from the number of fields found among
// tax id, currency, total, issue date and document number.
func Text(present int) float64 {
	if present < 0 {
		present = 0
	}
	c := Base + PerField*float64(present)
	if c > Max {
		c = Max
	}
	return c
}

// Model clamps a model-reported confidence into [0,1], using fallback when the model reported none.
func Model(reported *float64, fallback float64) float64 {
	v := fallback
	if reported != nil {
		v = *reported
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

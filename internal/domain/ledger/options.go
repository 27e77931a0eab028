package ledger

import "github.com/okian/vists/internal/domain/model"

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithSchema sets the header labels used to locate columns.
func WithSchema(schema model.Schema) Option {
	return func(l *Ledger) {
		l.schema = schema
	}
}

// WithFormat sets how computed values are rendered into cells.
func WithFormat(format func(float64) string) Option {
	return func(l *Ledger) {
		if format != nil {
			l.format = format
		}
	}
}

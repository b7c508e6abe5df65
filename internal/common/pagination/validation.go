package pagination

import "fmt"

// Validate checks the page/limit pair against the configured bounds. The
// error text matches what ParseQueryParams reports so handlers can return
// either verbatim.
func (p Params) Validate(config Config) error {
	if p.Page < 1 {
		return fmt.Errorf("page must be a positive integer")
	}
	if p.Limit < 1 || p.Limit > config.MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d", config.MaxLimit)
	}
	return nil
}

// WithDefaults normalizes params built in code rather than parsed from a
// request: non-positive values fall back to the defaults and limit is capped
// at config.MaxLimit.
func (p Params) WithDefaults(config Config) Params {
	if p.Page <= 0 {
		p.Page = config.DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = config.DefaultLimit
	}
	if p.Limit > config.MaxLimit {
		p.Limit = config.MaxLimit
	}
	return p
}

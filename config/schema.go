package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/hashicorp/go-multierror"
)

const schemaSource = `
#Config: {
	log: {
		verbosity: int & >=-5 & <=5
		path?:     string & !=""
	}
	frames: capacity: int & >=1 & <=1048576
	finalization: deferred: bool
	journal: path?: string & !=""
	sweeper: {
		enabled:  bool
		interval: =~"^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"
	}
}
`

var schemaPath = cue.ParsePath("#Config")

// Validate checks c against the configuration schema. Every violation is
// reported, not just the first.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := schema.LookupPath(schemaPath).Unify(ctx.Encode(c))
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs *multierror.Error
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		errs = multierror.Append(errs, fmt.Errorf("%s: %s",
			strings.Join(e.Path(), "."), fmt.Sprintf(format, args...)))
	}
	return errs.ErrorOrNil()
}

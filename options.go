package trackbuilder

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-trackbuilder/config"
)

// ErrOutputClobber is returned when an operation would overwrite its input
var ErrOutputClobber = errors.New("output path is the same as the input path")

// Options are shared by every batch operation
type Options struct {
	// Config holds association and frame parameters, defaults when nil
	Config *config.Config
	// Labels names the class ids, may be empty
	Labels []string
	// Log receives progress messages, discarded when nil
	Log logrus.FieldLogger
}

// config returns the configuration, falling back to defaults
func (o Options) config() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

// logger returns the logger, falling back to one that discards output
func (o Options) logger() logrus.FieldLogger {

	if o.Log != nil {
		return o.Log
	}

	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

// checkClobber refuses an output path that resolves to the input path
func checkClobber(in, out string) error {

	inAbs, err := filepath.Abs(filepath.Clean(in))

	if err != nil {
		return fmt.Errorf("error resolving %s: %w", in, err)
	}

	outAbs, err := filepath.Abs(filepath.Clean(out))

	if err != nil {
		return fmt.Errorf("error resolving %s: %w", out, err)
	}

	if inAbs == outAbs {
		return fmt.Errorf("%s: %w", out, ErrOutputClobber)
	}

	return nil
}

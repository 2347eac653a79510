// Package config holds process configuration for the faras server.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPlain   = "plain"
)

type Config struct {
	Directory    string
	Host         string
	Port         int
	LogLevel     string
	LogFormat    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func Default() Config {
	return Config{
		Directory: os.TempDir(),
		Host:      "127.0.0.1",
		Port:      4221,
		LogLevel:  "info",
		LogFormat: FormatConsole,
	}
}

// Parse reads flags from args (without the program name) on top of the
// defaults and validates the result. Usage and errors go to out.
func Parse(name string, args []string, out io.Writer) (Config, error) {
	c := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&c.Directory, "directory", c.Directory, "directory served by /files/")
	fs.StringVar(&c.Host, "host", c.Host, "address to listen on")
	fs.IntVar(&c.Port, "port", c.Port, "TCP port to listen on")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "minimum log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log output: json, console, plain")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "deadline for reading a request, 0 for none")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "deadline for writing a response, 0 for none")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("config: unexpected arguments %q", fs.Args())
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	switch c.LogFormat {
	case FormatJSON, FormatConsole, FormatPlain:
	default:
		errs = append(errs, fmt.Errorf("config: unknown log format %q", c.LogFormat))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		errs = append(errs, errors.New("config: timeouts must not be negative"))
	}
	if c.Directory == "" {
		errs = append(errs, errors.New("config: directory must not be empty"))
	}
	return errors.Join(errs...)
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/tether-analysis/tether/pkg/coupling"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "Config error",
			err:  &coupling.ConfigError{Path: "tether.toml", Err: errors.New("bad")},
			want: 1,
		},
		{
			name: "Workspace error",
			err:  &coupling.WorkspaceError{Path: "Cargo.toml", Err: errors.New("bad")},
			want: 1,
		},
		{
			name: "Io error",
			err:  &coupling.IoError{Path: "/nope", Err: errors.New("missing")},
			want: 1,
		},
		{
			name: "Invariant violation is an internal bug",
			err:  &coupling.InvariantError{Invariant: "I2", Detail: "mismatch"},
			want: 2,
		},
		{
			name: "Explicit exit code",
			err:  cli.Exit("boom", 1),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetRootDefault(t *testing.T) {
	app := &cli.App{
		Action: func(c *cli.Context) error {
			if got := getRoot(c); got != "." {
				t.Errorf("getRoot() = %q, want .", got)
			}
			return nil
		},
	}
	if err := app.Run([]string{"tether"}); err != nil {
		t.Fatal(err)
	}
}

package memcas

import (
	"context"
	"flag"

	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "memory",
		Description: "In-memory CAS (contents are lost on exit)",
		Usage:       casregistry.UsageClient | casregistry.UsageDaemon,
		Flags: func(fs *flag.FlagSet) casregistry.Opener {
			return func(context.Context) (storage.CAS, func() error, error) {
				return New(), nil, nil
			}
		},
	})
}

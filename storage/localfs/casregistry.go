package localfs

import (
	"context"
	"flag"
	"fmt"

	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem CAS (directory)",
		Usage:       casregistry.UsageClient | casregistry.UsageDaemon,
		Flags: func(fs *flag.FlagSet) casregistry.Opener {
			dir := fs.String("localfs-dir", "", "LocalFS CAS directory (for --backend=localfs)")
			return func(context.Context) (storage.CAS, func() error, error) {
				if *dir == "" {
					return nil, nil, fmt.Errorf("missing --localfs-dir")
				}
				cas, err := New(*dir)
				return cas, nil, err
			}
		},
	})
}

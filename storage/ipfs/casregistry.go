package ipfs

import (
	"context"
	"flag"

	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repository via the ipfs CLI",
		Usage:       casregistry.UsageClient | casregistry.UsageDaemon,
		Flags: func(fs *flag.FlagSet) casregistry.Opener {
			bin := fs.String("ipfs-bin", "ipfs", "Path to the ipfs binary (for --backend=ipfs)")
			repo := fs.String("ipfs-path", "", "IPFS_PATH repository (for --backend=ipfs)")
			pin := fs.Bool("pin", false, "Pin written blocks (for --backend=ipfs)")
			return func(context.Context) (storage.CAS, func() error, error) {
				return New(Options{Bin: *bin, RepoPath: *repo, Pin: *pin}), nil, nil
			}
		},
	})
}

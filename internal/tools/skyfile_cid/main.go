// Command skyfile_cid prints the locator a file would be stored under.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/skyfile"
)

func main() {
	compress := flag.Bool("zstd", false, "compute the locator of the zstd-compressed envelope")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: skyfile_cid [-zstd] <file>")
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}
	var opts []skyfile.EncodeOption
	if *compress {
		opts = append(opts, skyfile.WithCompression())
	}
	env, err := skyfile.Encode(skyfile.New(filepath.Base(path), b), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	id, err := cidutil.Sum(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(id)
}

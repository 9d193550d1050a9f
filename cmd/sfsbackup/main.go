// Command sfsbackup snapshots and restores the raw backing image of a
// mounted file system, and reports host filesystem metadata about an
// image file. It operates purely on the backing store's bytes — it does
// not understand the engine's on-disk layout — so it is disk-image
// tooling alongside the engine, not a file system feature.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pierrec/lz4"
	times "gopkg.in/djherbis/times.v1"

	"github.com/ulikunitz/xz"
)

type codec string

const (
	codecNone codec = "none"
	codecLZ4  codec = "lz4"
	codecXZ   codec = "xz"
)

func compressWriter(w io.Writer, c codec) (io.WriteCloser, error) {
	switch c {
	case codecLZ4:
		return lz4.NewWriter(w), nil
	case codecXZ:
		return xz.NewWriter(w)
	case codecNone, "":
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("sfsbackup: unknown codec %q", c)
	}
}

func decompressReader(r io.Reader, c codec) (io.Reader, error) {
	switch c {
	case codecLZ4:
		return lz4.NewReader(r), nil
	case codecXZ:
		return xz.NewReader(r)
	case codecNone, "":
		return r, nil
	default:
		return nil, fmt.Errorf("sfsbackup: unknown codec %q", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func snapshot(image, out string, c codec) error {
	in, err := os.Open(image)
	if err != nil {
		return fmt.Errorf("sfsbackup: open image: %w", err)
	}
	defer in.Close()

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("sfsbackup: create snapshot: %w", err)
	}
	defer f.Close()

	w, err := compressWriter(f, c)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("sfsbackup: write snapshot: %w", err)
	}
	return w.Close()
}

func restore(snap, image string, c codec) error {
	in, err := os.Open(snap)
	if err != nil {
		return fmt.Errorf("sfsbackup: open snapshot: %w", err)
	}
	defer in.Close()

	r, err := decompressReader(in, c)
	if err != nil {
		return err
	}

	f, err := os.Create(image)
	if err != nil {
		return fmt.Errorf("sfsbackup: create image: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("sfsbackup: restore image: %w", err)
	}
	return nil
}

// inspect reports the host filesystem's view of the backing image: its
// size and, where the underlying OS exposes them, birth/change/access
// times. The engine's own i-node records carry no timestamp fields, so
// this is the only place a user can learn when an image was last
// touched.
func inspect(image string) error {
	info, err := os.Stat(image)
	if err != nil {
		return fmt.Errorf("sfsbackup: stat image: %w", err)
	}
	t, err := times.Stat(image)
	if err != nil {
		return fmt.Errorf("sfsbackup: read host file times: %w", err)
	}

	fmt.Printf("path:          %s\n", image)
	fmt.Printf("size:          %d bytes\n", info.Size())
	fmt.Printf("modified:      %s\n", t.ModTime())
	fmt.Printf("accessed:      %s\n", t.AccessTime())
	if t.HasChangeTime() {
		fmt.Printf("changed:       %s\n", t.ChangeTime())
	}
	if t.HasBirthTime() {
		fmt.Printf("created:       %s\n", t.BirthTime())
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: sfsbackup <snapshot|restore|inspect> ...")
	}

	switch os.Args[1] {
	case "snapshot":
		fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
		image := fs.String("image", "", "path to the backing image to snapshot")
		out := fs.String("out", "", "path to write the snapshot to")
		c := fs.String("codec", string(codecLZ4), "compression codec: none, lz4, xz")
		fs.Parse(os.Args[2:])
		if *image == "" || *out == "" {
			log.Fatal("sfsbackup snapshot: -image and -out are required")
		}
		if err := snapshot(*image, *out, codec(*c)); err != nil {
			log.Fatal(err)
		}
	case "restore":
		fs := flag.NewFlagSet("restore", flag.ExitOnError)
		snap := fs.String("snapshot", "", "path to a snapshot produced by sfsbackup snapshot")
		image := fs.String("image", "", "path to write the restored backing image to")
		c := fs.String("codec", string(codecLZ4), "compression codec the snapshot was written with")
		fs.Parse(os.Args[2:])
		if *snap == "" || *image == "" {
			log.Fatal("sfsbackup restore: -snapshot and -image are required")
		}
		if err := restore(*snap, *image, codec(*c)); err != nil {
			log.Fatal(err)
		}
	case "inspect":
		fs := flag.NewFlagSet("inspect", flag.ExitOnError)
		image := fs.String("image", "", "path to the backing image to inspect")
		fs.Parse(os.Args[2:])
		if *image == "" {
			log.Fatal("sfsbackup inspect: -image is required")
		}
		if err := inspect(*image); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("sfsbackup: unknown subcommand %q", os.Args[1])
	}
}

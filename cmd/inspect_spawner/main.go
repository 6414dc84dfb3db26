package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/dm-vev/silkspawner/server/spawner"
	"github.com/dm-vev/silkspawner/server/spawner/index"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// keyBlockEntity is the tag byte that ends the LevelDB key of the block entities of a chunk.
const keyBlockEntity = 0x31

// inspect_spawner prints the spawners stored in a spawner index, the spawners saved in the chunks of a world
// or the spawner records found in a file of little endian block entity NBT.
func main() {
	db := flag.String("index", "plugins/data/silktouchplus/spawners.db", "path of the spawner index")
	dir := flag.String("world", "", "path of a world folder to scan instead of the index")
	dump := flag.String("nbt", "", "path of a block entity NBT dump to decode instead of the index")
	flag.Parse()

	var err error
	switch {
	case *dump != "":
		err = printNBT(*dump)
	case *dir != "":
		err = printWorld(*dir)
	default:
		err = printIndex(*db)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printIndex(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	idx, err := index.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	defer idx.Close()

	rows, err := idx.Rows(context.Background())
	if err != nil {
		return err
	}
	f := spawner.NewFormatter(".")
	for _, r := range rows {
		fmt.Printf("%s %v %s health=%s hologram=%v updated=%s\n", r.World, r.Pos, r.Type, f.Format(r.Health), r.Hologram, r.Updated.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("%d spawners\n", len(rows))
	return nil
}

func printNBT(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read nbt: %w", err)
	}
	n, err := printRecords(data)
	if err != nil {
		return err
	}
	fmt.Printf("%d spawners\n", n)
	return nil
}

func printWorld(dir string) error {
	db, err := leveldb.OpenFile(filepath.Join(dir, "db"), &opt.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open world: %w", err)
	}
	defer db.Close()

	it := db.NewIterator(nil, nil)
	defer it.Release()
	total := 0
	for it.Next() {
		k := it.Key()
		if (len(k) != 9 && len(k) != 13) || k[len(k)-1] != keyBlockEntity {
			continue
		}
		n, err := printRecords(it.Value())
		if err != nil {
			return fmt.Errorf("chunk %x: %w", k[:len(k)-1], err)
		}
		total += n
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("iterate world: %w", err)
	}
	fmt.Printf("%d spawners\n", total)
	return nil
}

// printRecords prints every spawner among the concatenated block entity compounds in data and returns how
// many were found.
func printRecords(data []byte) (int, error) {
	dec := nbt.NewDecoderWithEncoding(bytes.NewBuffer(data), nbt.LittleEndian)
	f := spawner.NewFormatter(".")
	n := 0
	for {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return n, fmt.Errorf("decode nbt: %w", err)
		}
		if id, _ := m["id"].(string); id != "MobSpawner" {
			continue
		}
		r := spawner.DecodeRecord(m)
		if id, ok := m["EntityIdentifier"].(string); ok && r.Type == "" {
			r.Type = spawner.NormaliseType(id)
		}
		x, y, z := m["x"], m["y"], m["z"]
		fmt.Printf("[%v %v %v] %s health=%s hologram=%v\n", x, y, z, r.Type, f.Format(r.Health), r.Hologram)
		n++
	}
	return n, nil
}

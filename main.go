package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/go-faker/faker/v4"

	"obtree/btree"
	"obtree/cli"
)

var degree, seedNumRecords, seedNumDeletes *int
var shouldSeed *bool

func seedTreeWithTestRecords(t *btree.Tree) {
	inserted := make([]uint64, 0, *seedNumRecords)
	for len(inserted) < *seedNumRecords {
		id := uint64(rand.Intn(*seedNumRecords * 10))
		// Search before insert, retry on hit: one record per id.
		if _, err := t.Find(cli.EncodeKey(id), nil); err == nil {
			continue
		}
		rec := cli.Record{ID: id, Name: faker.Word()}
		if err := t.Insert(rec.Encode()); err != nil {
			log.Fatal(err)
		}
		inserted = append(inserted, id)
	}
	for _, i := range rand.Perm(len(inserted))[:*seedNumDeletes] {
		t.Delete(cli.EncodeKey(inserted[i]))
	}
}

func main() {
	setupFlags()

	tree, err := btree.New(cli.TreeOptions(*degree))
	if err != nil {
		log.Fatal(err)
	}

	if *shouldSeed {
		seedTreeWithTestRecords(tree)
	}

	scanner := bufio.NewScanner(os.Stdin)
	demo := cli.NewCLI(scanner, tree)
	demo.Start()
}

func setupFlags() {
	degree = flag.Int("degree", 15, "Minimum degree of the B-Tree.")
	shouldSeed = flag.Bool("seed", false, "Seed the tree using records created with go-faker.")
	seedNumRecords = flag.Int("records", 128, "Amount of records to seed the tree with upon startup.")
	seedNumDeletes = flag.Int("deletes", 0, "Amount of seeded records to delete again before startup.")
	flag.Usage = func() {
		fmt.Println("\nB-Tree CLI\n\nArguments:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *seedNumDeletes > *seedNumRecords {
		log.Fatalf("cannot delete %d of %d seeded records", *seedNumDeletes, *seedNumRecords)
	}
}

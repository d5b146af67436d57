package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"obtree/btree"
	"obtree/snapshot"
)

type CLI struct {
	scanner    *bufio.Scanner
	tree       *btree.Tree
	visualizer *btree.Visualizer
	out        io.Writer
}

func NewCLI(s *bufio.Scanner, t *btree.Tree) *CLI {
	return &CLI{
		scanner:    s,
		tree:       t,
		visualizer: newVisualizer(t),
		out:        os.Stdout,
	}
}

func newVisualizer(t *btree.Tree) *btree.Visualizer {
	return &btree.Visualizer{
		Tree: t,
		Format: func(obj []byte) string {
			return strconv.FormatUint(DecodeRecord(obj).ID, 10)
		},
	}
}

func (c *CLI) Start() {
	c.printHelp()
	c.printPrompt()
	for c.scanner.Scan() {
		if quit := c.processInput(c.scanner.Text()); quit {
			return
		}
		c.printPrompt()
	}
}

func (c *CLI) printHelp() {
	fmt.Fprintln(c.out, `
B-Tree CLI

Available Commands:
  SET <id> <name> Insert a record into the B-Tree
  GET <id>        Retrieve the record for id from the B-Tree
  DEL <id>        Remove the record for id from the B-Tree
  LIST            Print every record in ascending id order
  TREE            Visualize the node structure
  DUMP <file>     Write a compressed snapshot of the tree
  LOAD <file>     Replace the tree with a snapshot's contents
  EXIT            Terminate this session`)
}

func (c *CLI) printPrompt() {
	fmt.Fprint(c.out, "> ")
}

func (c *CLI) processInput(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return false
	}
	command := strings.ToLower(fields[0])
	switch command {
	default:
		fmt.Fprintf(c.out, "Unknown command %q\n", command)
	case "set":
		c.processSetCommand(fields[1:])
	case "get":
		c.processGetCommand(fields[1:])
	case "del":
		c.processDeleteCommand(fields[1:])
	case "list":
		c.processListCommand()
	case "tree":
		fmt.Fprintln(c.out, c.visualizer.Visualize())
	case "dump":
		c.processDumpCommand(fields[1:])
	case "load":
		c.processLoadCommand(fields[1:])
	case "exit":
		c.tree.Close()
		return true
	}
	return false
}

func (c *CLI) parseID(arg string) (uint64, bool) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		fmt.Fprintf(c.out, "Bad id %q\n", arg)
		return 0, false
	}
	return id, true
}

func (c *CLI) processSetCommand(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: SET <id> <name>")
		return
	}
	id, ok := c.parseID(args[0])
	if !ok {
		return
	}
	// Same policy as the seeder: one record per id, search before insert.
	if _, err := c.tree.Find(EncodeKey(id), nil); err == nil {
		fmt.Fprintln(c.out, color.YellowString("Id %d already present.", id))
		return
	}
	if err := c.tree.Insert(Record{ID: id, Name: args[1]}.Encode()); err != nil {
		fmt.Fprintln(c.out, color.RedString("Insert failed: %v", err))
		return
	}
	fmt.Fprintln(c.out, color.GreenString("OK, %d records.", c.tree.Len()))
}

func (c *CLI) processGetCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: GET <id>")
		return
	}
	id, ok := c.parseID(args[0])
	if !ok {
		return
	}
	buf := make([]byte, RecordSize)
	obj, err := c.tree.Find(EncodeKey(id), buf)
	if err != nil {
		fmt.Fprintln(c.out, color.RedString("Id not found."))
		return
	}
	rec := DecodeRecord(obj)
	fmt.Fprintf(c.out, "%d %s\n", rec.ID, rec.Name)
}

func (c *CLI) processDeleteCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: DEL <id>")
		return
	}
	id, ok := c.parseID(args[0])
	if !ok {
		return
	}
	if !c.tree.Delete(EncodeKey(id)) {
		fmt.Fprintln(c.out, color.RedString("Id not found."))
		return
	}
	fmt.Fprintln(c.out, color.GreenString("OK, %d records.", c.tree.Len()))
}

func (c *CLI) processListCommand() {
	c.tree.Walk(func(obj []byte) {
		rec := DecodeRecord(obj)
		fmt.Fprintf(c.out, "%d %s\n", rec.ID, rec.Name)
	})
	fmt.Fprintf(c.out, "%d records.\n", c.tree.Len())
}

func (c *CLI) processDumpCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: DUMP <file>")
		return
	}
	f, err := os.Create(args[0])
	if err != nil {
		fmt.Fprintln(c.out, color.RedString("Dump failed: %v", err))
		return
	}
	defer f.Close()
	if err := snapshot.Write(f, c.tree); err != nil {
		fmt.Fprintln(c.out, color.RedString("Dump failed: %v", err))
		return
	}
	fmt.Fprintln(c.out, color.GreenString("Dumped %d records to %s.", c.tree.Len(), args[0]))
}

func (c *CLI) processLoadCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: LOAD <file>")
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(c.out, color.RedString("Load failed: %v", err))
		return
	}
	defer f.Close()
	loaded, err := snapshot.Read(f, TreeOptions(c.tree.Degree()))
	if err != nil {
		fmt.Fprintln(c.out, color.RedString("Load failed: %v", err))
		return
	}
	c.tree.Close()
	c.tree = loaded
	c.visualizer = newVisualizer(loaded)
	fmt.Fprintln(c.out, color.GreenString("Loaded %d records from %s.", c.tree.Len(), args[0]))
}

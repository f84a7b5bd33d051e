package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/repos/state"
	"github.com/haukened/navguard/internal/guard/repos/state/parsers"
)

// check evaluates one URL. Statistics are not touched.
func check(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("check takes exactly one URL")
	}
	cfg, err := setup()
	if err != nil {
		return err
	}
	app, err := buildApplication(cfg, log.GetLogger(), false)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer app.Close()

	d := app.engine.Evaluate(context.Background(), c.Args().First())
	return writeJSON(c.App.Writer, d)
}

// openLists opens the store and list repository only.
func openLists(logger log.Logger) (state.Store, *state.ListRepo, error) {
	cfg, err := setup()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg.DataPath)
	if err != nil {
		return nil, nil, err
	}
	return store, state.NewListRepo(state.ListRepoOptions{Store: store, Logger: logger}), nil
}

func showLists(c *cli.Context) error {
	store, lists, err := openLists(log.GetLogger())
	if err != nil {
		return err
	}
	defer store.Close()
	return writeJSON(c.App.Writer, lists.Snapshot())
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "list",
			Usage: "target list: white or black (YAML files may omit it to import both)",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "file format: plain, hosts or yaml",
			Value: string(parsers.FormatPlain),
		},
	}
}

type importResult struct {
	List  string `json:"list"`
	Read  int    `json:"read"`
	Added int    `json:"added"`
}

func importList(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("import takes exactly one FILE")
	}
	path := c.Args().First()

	format, err := parsers.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	var kinds []domain.ListKind
	if name := c.String("list"); name != "" {
		kind, err := domain.ParseListKind(name)
		if err != nil {
			return err
		}
		kinds = []domain.ListKind{kind}
	} else if format == parsers.FormatYAML {
		kinds = []domain.ListKind{domain.Whitelist, domain.Blacklist}
	} else {
		return fmt.Errorf("--list is required for %s files", format)
	}

	logger := log.GetLogger()
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	entries, err := parseEntries(f, path, format, kinds, logger)
	if err != nil {
		return err
	}

	store, lists, err := openLists(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	results := make([]importResult, 0, len(kinds))
	for _, kind := range kinds {
		added, err := importEntries(lists, kind, entries[kind], logger)
		if err != nil {
			return err
		}
		results = append(results, importResult{List: kind.String(), Read: len(entries[kind]), Added: added})
	}
	return writeJSON(c.App.Writer, results)
}

// parseEntries reads the file once and returns the entries per target list.
func parseEntries(r io.Reader, source string, format parsers.Format, kinds []domain.ListKind, logger log.Logger) (map[domain.ListKind][]string, error) {
	out := make(map[domain.ListKind][]string, len(kinds))
	switch format {
	case parsers.FormatYAML:
		seed, err := parsers.ParseSeed(r, source, logger)
		if err != nil {
			return nil, err
		}
		for _, k := range kinds {
			out[k] = seed.Entries(k)
		}
	case parsers.FormatHosts:
		names, err := parsers.ParseHostsFile(r, source, logger)
		if err != nil {
			return nil, err
		}
		out[kinds[0]] = names
	default:
		names, err := parsers.ParsePlainList(r, source, logger)
		if err != nil {
			return nil, err
		}
		out[kinds[0]] = names
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

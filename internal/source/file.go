package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"activitytracker-engine/internal/domain"
)

// FragmentSeparator is a line on its own between fragments in fixture files.
const FragmentSeparator = "---"

// FileCollector replays fragments from <Dir>/<category>.txt.
type FileCollector struct {
	Dir string
}

func (c *FileCollector) Name() string { return "file" }

func (c *FileCollector) Collect(ctx context.Context, category string) ([]domain.RawFragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Join(c.Dir, filepath.Base(category)+".txt")
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("fixture for %q: %w", category, err)
	}
	defer f.Close()

	var (
		out []domain.RawFragment
		cur []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(cur, "\n"))
		if text != "" {
			out = append(out, domain.RawFragment{SectionLabel: category, Text: text})
		}
		cur = cur[:0]
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == FragmentSeparator {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	flush()
	return out, nil
}

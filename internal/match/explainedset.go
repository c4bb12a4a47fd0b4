package match

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LoadExplainedSet reads the a-priori explained entities from a text
// file, one name per line. A second comma-separated column (the reason
// the entity is explained, kept upstream) is ignored.
func LoadExplainedSet(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open explained set: %w", err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, _, _ := strings.Cut(line, ",")
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read explained set %s: %w", path, err)
	}
	slog.Info("loaded explained set", "path", path, "entities", len(set))
	return set, nil
}

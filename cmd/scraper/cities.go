package main

import (
	"bufio"
	"os"
	"strings"

	scrapeerrors "maps-scraper/pkg/errors"
)

// splitList splits a comma-separated flag value, trimming blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readCities merges the cities given on the command line with those in path
// (one per line, # starts a comment). Names are trimmed and repeated names
// dropped, keeping the first spelling and the input order.
func readCities(list, path string) ([]string, error) {
	names := splitList(list)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, scrapeerrors.NewInput("failed to open cities file "+path, err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			names = append(names, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, scrapeerrors.NewInput("failed to read cities file "+path, err)
		}
	}

	seen := make(map[string]bool)
	var cities []string
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		cities = append(cities, name)
	}
	return cities, nil
}

package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// rcDefaults are the values loaded from ~/.rangedlrc, applied before
// flags are parsed so a flag the user actually typed always wins.
type rcDefaults struct {
	threadNum             int
	maxThreadNum          int
	maxRetry              int
	maxThreadRetry        int
	desiredCompletionTime int
}

func loadRC() rcDefaults {
	cfg := rcDefaults{
		maxRetry:              5,
		maxThreadRetry:        -1,
		maxThreadNum:          10,
		desiredCompletionTime: 30,
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}

	f, err := os.Open(filepath.Join(home, ".rangedlrc"))
	if err != nil {
		return cfg
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		v, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case "threadnum":
			cfg.threadNum = v
		case "max":
			cfg.maxThreadNum = v
		case "retry":
			cfg.maxRetry = v
		case "threadRetry":
			cfg.maxThreadRetry = v
		case "wish":
			cfg.desiredCompletionTime = v
		}
	}

	return cfg
}

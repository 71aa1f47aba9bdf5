package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// supportedExt maps accepted extensions to the track kind they feed.
var supportedExt = map[string]string{
	".ivf":  "video",
	".ogg":  "audio",
	".opus": "audio",
}

// ValidateFiles checks that every media input exists, is a readable
// non-empty file and has a supported container. All problems are reported
// together.
func ValidateFiles(paths ...string) error {
	var problems []string
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := validateFile(path); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("media validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateFile(path string) error {
	if _, ok := supportedExt[strings.ToLower(filepath.Ext(path))]; !ok {
		return fmt.Errorf("%s: unsupported container (want .ivf, .ogg or .opus)", path)
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: file does not exist", path)
		}
		return fmt.Errorf("%s: failed to stat file: %w", path, err)
	}

	if stat.IsDir() {
		return fmt.Errorf("%s: is a directory", path)
	}
	if stat.Size() == 0 {
		return fmt.Errorf("%s: file is empty", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: cannot open file (check permissions): %w", path, err)
	}
	f.Close()
	return nil
}

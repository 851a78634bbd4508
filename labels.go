package trackbuilder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the class labels from the given text file, one label per
// line where the line number is the class id.  Blank lines are kept so ids do
// not shift.
func LoadLabels(file string) ([]string, error) {

	if file == "" {
		return nil, nil
	}

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening label file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading label file: %w", err)
	}

	// trailing blank lines name no class
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	return labels, nil
}

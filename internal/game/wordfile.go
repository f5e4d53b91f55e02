package game

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
)

// ReadWordsFile loads a word list from a CSV file with a header row. The
// word is taken from the second column when there is one, else the first.
func ReadWordsFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadWords(file)
}

func ReadWords(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var words []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		word := row[0]
		if len(row) >= 2 {
			word = row[1]
		}
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	return words, nil
}

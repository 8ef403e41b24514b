package relation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	rosterUsernameColumn    = "username"
	rosterDisplayNameColumn = "display_name"
	openRosterErrFormat     = "open roster %s: %w"
	readRosterErrFormat     = "read roster %s: %w"
	missingColumnErrMessage = "roster file has no username column"
)

// ErrMissingUsernameColumn indicates the roster header row lacks a username column.
var ErrMissingUsernameColumn = errors.New(missingColumnErrMessage)

// LoadRoster reads the delimited account list exported from the profile
// scrape. The first row is a header; a username column is required and a
// display_name column is optional. Row order is preserved and duplicate
// usernames keep their first position.
func LoadRoster(path string) ([]AccountRecord, error) {
	fileHandle, openErr := os.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf(openRosterErrFormat, path, openErr)
	}
	defer fileHandle.Close()

	records, parseErr := parseRoster(fileHandle)
	if parseErr != nil {
		return nil, fmt.Errorf(readRosterErrFormat, path, parseErr)
	}
	return records, nil
}

func parseRoster(reader io.Reader) ([]AccountRecord, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	headerRow, headerErr := csvReader.Read()
	if headerErr != nil {
		return nil, headerErr
	}

	usernameIndex := -1
	displayNameIndex := -1
	for columnIndex, columnName := range headerRow {
		switch strings.TrimSpace(columnName) {
		case rosterUsernameColumn:
			usernameIndex = columnIndex
		case rosterDisplayNameColumn:
			displayNameIndex = columnIndex
		}
	}
	if usernameIndex == -1 {
		return nil, ErrMissingUsernameColumn
	}

	var records []AccountRecord
	positionByUsername := make(map[string]int)
	for {
		row, rowErr := csvReader.Read()
		if errors.Is(rowErr, io.EOF) {
			break
		}
		if rowErr != nil {
			return nil, rowErr
		}
		if usernameIndex >= len(row) {
			continue
		}
		username := strings.TrimSpace(row[usernameIndex])
		if username == "" {
			continue
		}
		displayName := ""
		if displayNameIndex != -1 && displayNameIndex < len(row) {
			displayName = strings.TrimSpace(row[displayNameIndex])
		}
		record := AccountRecord{Username: username, DisplayName: displayName}
		if position, alreadySeen := positionByUsername[username]; alreadySeen {
			records[position] = record
			continue
		}
		positionByUsername[username] = len(records)
		records = append(records, record)
	}
	return records, nil
}

package blocklist

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

type fileRepo struct {
	paths []string
}

//NewFileRepository loads blocklist entries from CSV files. Each path
//may be a local file or an http(s) URL; each row is
//"pattern,category,severity" with optional "#" comment lines.
func NewFileRepository(paths []string) Repository {
	return &fileRepo{
		paths: paths,
	}
}

//LoadAll reads every configured file, concatenating their rows.
//A file that cannot be opened fails the load; individual bad rows are
//left to the index builder to count and skip.
func (r *fileRepo) LoadAll() ([]Entry, error) {
	var entries []Entry
	for _, path := range r.paths {
		reader, err := tryOpenFileThenURL(path)()
		if err != nil {
			return nil, fmt.Errorf("could not open blocklist %s: %w", path, err)
		}

		fileEntries, err := parseCSVEntries(reader)
		reader.Close()
		if err != nil {
			return nil, fmt.Errorf("could not parse blocklist %s: %w", path, err)
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

func parseCSVEntries(reader io.Reader) ([]Entry, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.Comment = '#'
	csvReader.TrimLeadingSpace = true

	var entries []Entry
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 3 {
			// short rows are malformed; keep them so the load
			// warning count reflects them
			entries = append(entries, Entry{Pattern: strings.Join(record, ",")})
			continue
		}
		// skip a leading header row
		if strings.EqualFold(record[0], "pattern") {
			continue
		}

		severity, err := ParseSeverity(record[2])
		if err != nil {
			entries = append(entries, Entry{Pattern: record[0], Category: record[1]})
			continue
		}

		entries = append(entries, Entry{
			Pattern:  strings.TrimSpace(record[0]),
			Category: strings.TrimSpace(record[1]),
			Severity: severity,
		})
	}
	return entries, nil
}

//provide a closure over path to read the file into a line separated blocklist
func tryOpenFileThenURL(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		_, err := os.Stat(path)
		if err == nil {
			file, err2 := os.Open(path)
			if err2 != nil {
				return nil, err2
			}
			return file, nil
		}
		resp, err := http.Get(path)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
}

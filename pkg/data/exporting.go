package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func fileExists(file string) bool {
	if _, err := os.Stat(file); err == nil {
		return true
	}
	return false
}

// FreeName returns file if nothing exists there yet. Otherwise a numeric
// suffix is added before the extension (report.json, report0.json,
// report1.json, ...) until the name is free.
func FreeName(file string) string {
	if !fileExists(file) {
		return file
	}
	base := filepath.Base(file)
	fileExtension := ""
	suffixPosition := len(file)
	if i := strings.LastIndex(base, "."); i > 0 {
		suffixPosition = len(file) - len(base) + i
		fileExtension = file[suffixPosition:]
	}

	finalFilePath := file
	for suffix := 0; fileExists(finalFilePath); suffix++ {
		finalFilePath = fmt.Sprintf("%s%d%s", file[:suffixPosition], suffix, fileExtension)
	}
	return finalFilePath
}

func AppendToFile(file string, content string) error {
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(fmt.Sprintf("%s\n", content)); err != nil {
		return err
	}
	return nil
}

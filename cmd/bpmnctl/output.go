package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeOutput writes content to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path, content string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(w, content)
		return err
	}
	return os.WriteFile(path, []byte(content+"\n"), 0o644)
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

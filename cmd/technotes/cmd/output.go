package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// printer は結果を指定の形式で出力する。
type printer func(v any) error

// newPrinter はformatに対応するprinterを返す。
func newPrinter(format string, w io.Writer) (printer, error) {
	switch format {
	case formatJSON:
		return func(v any) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}, nil
	case formatYAML:
		return func(v any) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(v); err != nil {
				return err
			}
			return enc.Close()
		}, nil
	default:
		return nil, fmt.Errorf("不明な出力形式です: %q (json または yaml)", format)
	}
}

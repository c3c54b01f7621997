package strategy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// rubricFile is the on-disk layout:
//
//	rubrics:
//	  - name: quality
//	    criteria: [...]
type rubricFile struct {
	Rubrics []*Rubric `yaml:"rubrics"`
}

// ParseRubrics decodes and validates rubric YAML
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func ParseRubrics(data []byte) ([]*Rubric, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환

	var f rubricFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, contracts.ConfigurationError{Field: "rubrics", Message: err.Error()}
	}
	if len(f.Rubrics) == 0 {
		return nil, contracts.ConfigurationError{Field: "rubrics", Message: "no rubrics defined"}
	}

	for _, r := range f.Rubrics {
		if r == nil {
			return nil, contracts.ConfigurationError{Field: "rubrics", Message: "empty rubric entry"}
		}
		r.normalize()
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Rubrics, nil
}

// LoadRubrics reads a rubric file, or every *.yaml / *.yml file of a directory
func LoadRubrics(path string) ([]*Rubric, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load rubrics: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files = nil
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(path, pattern))
			if err != nil {
				return nil, fmt.Errorf("load rubrics: %w", err)
			}
			files = append(files, matches...)
		}
		sort.Strings(files)
	}

	var rubrics []*Rubric
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("load rubrics: %w", err)
		}
		parsed, err := ParseRubrics(data)
		if err != nil {
			var cfgErr contracts.ConfigurationError
			if errors.As(err, &cfgErr) {
				cfgErr.Field = filepath.Base(file) + ": " + cfgErr.Field
				return nil, cfgErr
			}
			return nil, err
		}
		rubrics = append(rubrics, parsed...)
	}
	return rubrics, nil
}

// Fingerprint is the SHA256 of the rubric's canonical JSON.
// Identical definitions always produce the same fingerprint.
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Fingerprint(r *Rubric) string {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		// Rubric has only plain fields; Marshal cannot fail on it
		panic(fmt.Sprintf("fingerprint %s: %v", r.Name, err))
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:])
}

// normalizeCriteria lower-cases free text and collapses whitespace and punctuation
func normalizeCriteria(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '&':
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	reasonNoJSON        = "no JSON object found"
	reasonEmpty         = "empty completion"
	reasonBadStructure  = "missing files array"
	reasonEmptyFiles    = "empty files array"
	reasonForbiddenKind = "forbidden output kind"
)

// Models wrap JSON in prose or markdown fences more often than not, so
// extraction is deliberately liberal: fenced block first, then the
// widest brace span, then the raw text.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractPayload locates and validates the {message, files} object
// embedded in raw model output. The target output kind is React/TSX
// components; payloads carrying standalone HTML documents are rejected
// outright so that no file event is ever emitted for them.
func ExtractPayload(raw string) (*Payload, error) {
	candidate, ok := locateJSON(raw)
	if !ok {
		return nil, &FormatError{Reason: reasonNoJSON}
	}

	var parsed struct {
		Message string            `json:"message"`
		Files   []json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, &FormatError{Reason: "unparseable JSON: " + err.Error()}
	}
	if parsed.Files == nil {
		return nil, &FormatError{Reason: reasonBadStructure}
	}
	if len(parsed.Files) == 0 {
		return nil, &FormatError{Reason: reasonEmptyFiles}
	}

	payload := &Payload{Message: parsed.Message}
	seen := make(map[string]int)
	for _, rawFile := range parsed.Files {
		var file GeneratedFile
		if err := json.Unmarshal(rawFile, &file); err != nil {
			return nil, &FormatError{Reason: "malformed file entry: " + err.Error()}
		}
		if file.Name == "" {
			return nil, &FormatError{Reason: "file entry missing name"}
		}
		if isForbiddenKind(file) {
			return nil, &FormatError{Reason: reasonForbiddenKind}
		}
		// Duplicate names collapse to the last occurrence, keeping the
		// position of the first.
		if idx, dup := seen[file.Name]; dup {
			payload.Files[idx] = file
			continue
		}
		seen[file.Name] = len(payload.Files)
		payload.Files = append(payload.Files, file)
	}

	return payload, nil
}

func locateJSON(raw string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		return raw[start : end+1], true
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		return trimmed, true
	}
	return "", false
}

func isForbiddenKind(file GeneratedFile) bool {
	name := strings.ToLower(file.Name)
	if strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
		return true
	}
	content := file.Content
	return strings.Contains(content, "<!DOCTYPE html>") || strings.Contains(content, "<html")
}

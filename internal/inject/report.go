package inject

import (
	"encoding/json"
	"sort"
)

// FileResult describes one processed notebook.
type FileResult struct {
	Path     string `json:"path"`
	Href     string `json:"href"`
	Removed  bool   `json:"removed"`
	Written  bool   `json:"written"`
	Cells    int    `json:"cells"`
	Checksum string `json:"checksum"`
}

// Failure records a notebook that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// MarshalJSON renders Err as a string.
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{f.Path, msg})
}

// Report is the outcome of a batch.
type Report struct {
	Succeeded []FileResult `json:"succeeded"`
	Failed    []Failure    `json:"failed"`
}

// Paths returns the paths of the successfully processed notebooks.
func (r *Report) Paths() []string {
	out := make([]string, len(r.Succeeded))
	for i, s := range r.Succeeded {
		out[i] = s.Path
	}
	return out
}

// Written counts notebooks whose content changed on disk.
func (r *Report) Written() int {
	n := 0
	for _, s := range r.Succeeded {
		if s.Written {
			n++
		}
	}
	return n
}

func (r *Report) sort() {
	sort.Slice(r.Succeeded, func(i, j int) bool { return r.Succeeded[i].Path < r.Succeeded[j].Path })
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Path < r.Failed[j].Path })
}

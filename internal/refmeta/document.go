package refmeta

// document is the on-disk TOML shape:
//
//	default_target { branch, remote_url, sha }
//	branches: map<StackId, Stack{ id, heads: [...], in_workspace, order, updated_timestamp_ms }>
//
// document values are compared by equality against a fresh zero value to
// decide whether the file should be deleted on write.
type document struct {
	DefaultTarget targetRecord           `toml:"default_target"`
	Branches      map[string]stackRecord `toml:"branches"`
}

type targetRecord struct {
	Branch    string `toml:"branch"`
	RemoteURL string `toml:"remote_url"`
	SHA       string `toml:"sha"`
}

type stackRecord struct {
	ID                 string       `toml:"id"`
	Heads              []headRecord `toml:"heads"`
	InWorkspace        bool         `toml:"in_workspace"`
	Order              int          `toml:"order"`
	UpdatedTimestampMs int64        `toml:"updated_timestamp_ms"`
}

type headRecord struct {
	Name        string  `toml:"name"`
	Description string  `toml:"description,omitempty"`
	PRNumber    *int    `toml:"pr_number,omitempty"`
	ReviewID    *string `toml:"review_id,omitempty"`
	Archived    bool    `toml:"archived"`
	Head        string  `toml:"head"`
}

func isDefaultDocument(d document) bool {
	return d.DefaultTarget == (targetRecord{}) && len(d.Branches) == 0
}

func (d *stackRecord) headIndex(name string) int {
	for i := range d.Heads {
		if d.Heads[i].Name == name {
			return i
		}
	}
	return -1
}

package target

// Entry is one numbered line of the target list shown to the user.
type Entry struct {
	Kind    Kind   `json:"kind"`
	Ordinal int    `json:"ordinal"`
	ID      string `json:"id"`
	Name    string `json:"name"`
}

// Enumerate lists every project, then every eligible agent, with the
// ordinal that ByNumber resolves for the same snapshot.
func Enumerate(dir Directory) []Entry {
	agents := dir.Agents()
	entries := make([]Entry, 0, len(dir.Projects)+len(agents))
	for i, p := range dir.Projects {
		entries = append(entries, Entry{Kind: KindProject, Ordinal: i + 1, ID: string(p.ID), Name: p.Name})
	}
	for i, s := range agents {
		entries = append(entries, Entry{Kind: KindAgent, Ordinal: i + 1, ID: string(s.ID), Name: s.DisplayTitle()})
	}
	return entries
}

// Target returns the numbered target that selects e.
func (e Entry) Target() *Target {
	return ByNumber(e.Kind, e.Ordinal)
}

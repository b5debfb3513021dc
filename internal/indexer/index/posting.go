package index

type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocIDs returns the document IDs of the list in order.
func (pl PostingList) DocIDs() []string {
	ids := make([]string, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

// TotalFrequency sums the term frequency over every posting.
func (pl PostingList) TotalFrequency() int {
	total := 0
	for _, p := range pl {
		total += p.Frequency
	}
	return total
}

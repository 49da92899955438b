package domain

// Document is one retrieved evidentiary unit. Identity is the Ref (a Sefaria
// citation string); two fetches of the same ref collapse to one entry.
type Document struct {
	Ref         string `json:"ref"`
	HebrewText  string `json:"hebrewText"`
	EnglishText string `json:"englishText"`
	Title       string `json:"title,omitempty"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
}

// SearchInfo is provenance metadata describing what retrieval actually did.
type SearchInfo struct {
	HebrewTermsUsed   []string `json:"hebrewTermsUsed"`
	EnglishTermsUsed  []string `json:"englishTermsUsed"`
	DirectRefsChecked []string `json:"directRefsChecked"`
}

// EvidenceSet is the ranked, deduplicated, size-bounded set of documents
// handed to reasoning.
type EvidenceSet struct {
	Success      bool       `json:"success"`
	TotalSources int        `json:"totalSources"`
	Sources      []Document `json:"allSourcesList"`
	SearchInfo   SearchInfo `json:"searchInfo"`
}

package models

// PaperMetadata is the normalized bibliographic record flowing through the
// ingestion path. Title is the only required field; records with neither
// abstract nor full text are still ingestable through the metadata fallback.
type PaperMetadata struct {
	PaperID         string   `json:"paperId"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract,omitempty"`
	FullText        string   `json:"fullText,omitempty"`
	Authors         []string `json:"authors,omitempty"`
	Year            int      `json:"year,omitempty"`
	CitationCount   int      `json:"citationCount,omitempty"`
	PublicationDate string   `json:"publicationDate,omitempty"`
	Venue           string   `json:"venue,omitempty"`
	URL             string   `json:"url,omitempty"`
	PDFURL          string   `json:"pdfUrl,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	Source          string   `json:"source,omitempty"`
	// AllowPDFExtract opts a paper in or out of PDF text extraction. Nil
	// means unset: caller-supplied papers default to allowed, discovered
	// papers are decided by the candidate selector.
	AllowPDFExtract *bool `json:"allowPdfExtract,omitempty"`
}

// PDFExtractAllowed reports whether PDF extraction may run for this record.
// An unset flag allows it.
func (p PaperMetadata) PDFExtractAllowed() bool {
	return p.AllowPDFExtract == nil || *p.AllowPDFExtract
}

// Chunk is one word-bounded span of a paper's text, the unit of embedding
// and retrieval. Indices are stable and start at 0 within a paper.
type Chunk struct {
	PaperID      string `json:"paperId"`
	ChunkIndex   int    `json:"chunkIndex"`
	Section      string `json:"section"`
	SectionIndex int    `json:"sectionIndex"`
	Text         string `json:"text"`
	WordCount    int    `json:"wordCount"`
}

// PaperProfile carries the keyword-heuristic structured fields extracted from
// a paper's merged text at ingest time. They ride on every vector record so
// insight and gap analysis never needs to re-fetch the paper.
type PaperProfile struct {
	ResearchQuestion string `json:"researchQuestion,omitempty"`
	Methodology      string `json:"methodology,omitempty"`
	DatasetSize      string `json:"datasetSize,omitempty"`
	ModelType        string `json:"modelType,omitempty"`
	KeyFindings      string `json:"keyFindings,omitempty"`
	LimitationsText  string `json:"limitationsText,omitempty"`
	FutureWork       string `json:"futureWork,omitempty"`
}

// ChunkMeta is the denormalized metadata stored alongside each embedding.
// It is sufficient to render citations and build answer context without
// another lookup.
type ChunkMeta struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	Authors       string `json:"authors,omitempty"`
	Year          int    `json:"year,omitempty"`
	CitationCount int    `json:"citationCount,omitempty"`
	Venue         string `json:"venue,omitempty"`
	DOI           string `json:"doi,omitempty"`
	URL           string `json:"url,omitempty"`
	PDFURL        string `json:"pdfUrl,omitempty"`
	Source        string `json:"source,omitempty"`
	ChunkIndex    int    `json:"chunkIndex"`
	Section       string `json:"section,omitempty"`
	SectionIndex  int    `json:"sectionIndex,omitempty"`
	ChunkText     string `json:"chunkText,omitempty"`

	PaperProfile
}

type SkippedPaper struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Reason  string `json:"reason"`
}

type FailedPaper struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Error   string `json:"error"`
}

// IngestOutcome is the per-run aggregate returned by Ingest. Partial success
// is a first-class result: skipped and failed papers are reported, never
// silently dropped.
type IngestOutcome struct {
	Namespace              string         `json:"namespace"`
	DiscoveredCount        int            `json:"discoveredCount"`
	CandidateCount         int            `json:"candidateCount"`
	SelectedCandidateCount int            `json:"selectedCandidateCount"`
	TruncatedCandidates    int            `json:"truncatedCandidates"`
	IngestedPapers         int            `json:"ingestedPapers"`
	IngestedChunks         int            `json:"ingestedChunks"`
	SkippedChunks          int            `json:"skippedChunks,omitempty"`
	SkippedPapers          []SkippedPaper `json:"skippedPapers"`
	FailedPapers           []FailedPaper  `json:"failedPapers"`
	TimedOut               bool           `json:"timedOut"`
	TimeBudgetSeconds      int            `json:"timeBudgetSeconds"`
	DiscoveryBudgetSeconds int            `json:"discoveryBudgetSeconds,omitempty"`
	DiscoveryBudgetHit     bool           `json:"discoveryBudgetHit,omitempty"`

	RequestedPDFExtraction      bool   `json:"requestedPdfExtraction"`
	EffectivePDFExtraction      bool   `json:"effectivePdfExtraction"`
	PDFExtractionDisabledReason string `json:"pdfExtractionDisabledReason,omitempty"`
	QueryPDFPaperLimit          int    `json:"queryPdfPaperLimit,omitempty"`
	QueryPDFExtractionSelected  int    `json:"queryPdfExtractionSelected,omitempty"`

	EmbeddingModel string `json:"embeddingModel,omitempty"`
	VectorProvider string `json:"vectorProvider,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Reference is the deduplicated, citation-numbered view over the papers
// backing an answer. Numbers are assigned in order of first appearance among
// ranked matches and are stable within one answer.
type Reference struct {
	CitationNumber int    `json:"citationNumber"`
	PaperID        string `json:"paperId"`
	Title          string `json:"title"`
	Year           int    `json:"year,omitempty"`
	Venue          string `json:"venue,omitempty"`
	Source         string `json:"source,omitempty"`
	DOI            string `json:"doi,omitempty"`
	URL            string `json:"url,omitempty"`
	Formatted      string `json:"formatted"`
}

// ContextChunk is one retrieved snippet actually used to build the answer
// context, returned to the caller when returnContexts is set.
type ContextChunk struct {
	Rank           int     `json:"rank"`
	CitationNumber int     `json:"citationNumber,omitempty"`
	PaperID        string  `json:"paperId"`
	Title          string  `json:"title"`
	Score          float64 `json:"score"`
	HybridScore    float64 `json:"hybridScore"`
	Section        string  `json:"section,omitempty"`
	ChunkIndex     int     `json:"chunkIndex"`
	Snippet        string  `json:"snippet"`
}

// RetrievalInfo reports what the retriever actually did for one question.
type RetrievalInfo struct {
	TopK           int    `json:"topK"`
	Returned       int    `json:"returned"`
	Namespace      string `json:"namespace"`
	EmbeddingModel string `json:"embeddingModel,omitempty"`
	ChatModel      string `json:"chatModel,omitempty"`
	Mode           string `json:"mode,omitempty"`
}

// AnswerArtifact is the synthesized response for qa, synthesis, comparison
// and outline tasks. ParseMode is "json" on a clean structured parse and
// "fallback" when raw model text had to stand in as the answer body.
type AnswerArtifact struct {
	Question            string         `json:"question"`
	Task                string         `json:"task"`
	Answer              string         `json:"answer"`
	CrossPaperSynthesis []string       `json:"crossPaperSynthesis"`
	Limitations         []string       `json:"limitations"`
	NextQuestions       []string       `json:"nextQuestions"`
	Confidence          string         `json:"confidence"`
	ParseMode           string         `json:"parseMode,omitempty"`
	References          []Reference    `json:"references"`
	Retrieval           RetrievalInfo  `json:"retrieval"`
	Contexts            []ContextChunk `json:"contexts,omitempty"`
}

// RankedPaper is one distinct paper summarized from retrieved matches,
// keyed by best match score. Feeds insights and gaps analysis.
type RankedPaper struct {
	CitationNumber int     `json:"citationNumber,omitempty"`
	PaperID        string  `json:"paperId"`
	Title          string  `json:"title"`
	Year           int     `json:"year,omitempty"`
	Source         string  `json:"source,omitempty"`
	Methodology    string  `json:"methodology,omitempty"`
	DatasetSize    string  `json:"datasetSize,omitempty"`
	ModelType      string  `json:"modelType,omitempty"`
	KeyFindings    string  `json:"keyFindings,omitempty"`
	Limitations    string  `json:"limitations,omitempty"`
	FutureWork     string  `json:"futureWork,omitempty"`
	Score          float64 `json:"score"`
}

type Insights struct {
	AgreementClusters         []string      `json:"agreementClusters"`
	Contradictions            []string      `json:"contradictions"`
	MethodologicalDifferences []string      `json:"methodologicalDifferences"`
	TimelineEvolution         []string      `json:"timelineEvolution"`
	ResearchGaps              []string      `json:"researchGaps"`
	PaperProfiles             []RankedPaper `json:"paperProfiles"`
}

type InsightsArtifact struct {
	Question   string         `json:"question"`
	Insights   Insights       `json:"insights"`
	References []Reference    `json:"references"`
	Retrieval  RetrievalInfo  `json:"retrieval"`
	Contexts   []ContextChunk `json:"contexts,omitempty"`
}

type GapsArtifact struct {
	Question           string        `json:"question"`
	Gaps               []string      `json:"gaps"`
	SupportingEvidence []string      `json:"supportingEvidence"`
	References         []Reference   `json:"references"`
	Retrieval          RetrievalInfo `json:"retrieval"`
}

// MetadataFilter restricts retrieval to records matching all set predicates.
type MetadataFilter struct {
	MinYear int    `json:"minYear,omitempty"`
	Source  string `json:"source,omitempty"`
}

// IngestRequest drives one synchronous ingest run. Either Papers or
// Query+Sources selects the candidate set; zero values fall back to the
// configured defaults and every numeric knob is clamped server-side.
type IngestRequest struct {
	Namespace          string          `json:"namespace"`
	Query              string          `json:"query,omitempty"`
	Sources            []string        `json:"sources,omitempty"`
	Limit              int             `json:"limit,omitempty"`
	Papers             []PaperMetadata `json:"papers,omitempty"`
	MaxCandidates      int             `json:"maxCandidates,omitempty"`
	ExtractPDFText     *bool           `json:"extractPdfText,omitempty"`
	QueryPDFPaperLimit *int            `json:"queryPdfPaperLimit,omitempty"`
	ChunkSizeWords     int             `json:"chunkSizeWords,omitempty"`
	ChunkOverlapWords  *int            `json:"chunkOverlapWords,omitempty"`
	MinChunkWords      int             `json:"minChunkWords,omitempty"`
	TimeBudgetSeconds  int             `json:"timeBudgetSeconds,omitempty"`
}

// AskRequest drives one question against an ingested namespace. Task selects
// the synthesis family: qa, synthesis, comparison, outline, insights, gaps.
type AskRequest struct {
	Namespace      string          `json:"namespace"`
	Question       string          `json:"question"`
	Task           string          `json:"task,omitempty"`
	CitationStyle  string          `json:"citationStyle,omitempty"`
	TopK           int             `json:"topK,omitempty"`
	ReturnContexts bool            `json:"returnContexts,omitempty"`
	MetadataFilter *MetadataFilter `json:"metadataFilter,omitempty"`
}

package bookalope

// Step enumerates the server-tracked phase of a bookflow.
type Step string

const (
	StepFiles            Step = "files"
	StepProcessing       Step = "processing"
	StepConvert          Step = "convert"
	StepProcessingFailed Step = "processing_failed"
)

// ConversionStatus enumerates the states of one requested conversion.
type ConversionStatus string

const (
	ConversionProcessing ConversionStatus = "processing"
	ConversionAvailable  ConversionStatus = "available"
	ConversionFailed     ConversionStatus = "failed"
	ConversionNone       ConversionStatus = "none"
)

// normalizeConversionStatus maps the legacy status spellings still emitted by
// older servers onto the canonical values.
func normalizeConversionStatus(status string) ConversionStatus {
	switch status {
	case "ok":
		return ConversionAvailable
	case "na":
		return ConversionNone
	default:
		return ConversionStatus(status)
	}
}

// Version selects between a watermarked test conversion and a final one.
type Version string

const (
	VersionTest  Version = "test"
	VersionFinal Version = "final"
)

// CreditType enumerates the billing entitlements that can be applied to a
// bookflow before upload.
type CreditType string

const (
	CreditBasic CreditType = "basic"
	CreditPro   CreditType = "pro"
)

// Metadata holds the book information attached to a bookflow. Empty fields
// are never sent to the server, so saving a partially filled Metadata cannot
// clear values the server already holds.
type Metadata struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Copyright string `json:"copyright,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	Language  string `json:"language,omitempty"`
	Pubdate   string `json:"pubdate,omitempty"`
	Publisher string `json:"publisher,omitempty"`
}

// Format describes a file format the server supports for import or export.
type Format struct {
	Name     string   `json:"name"`
	MIME     string   `json:"mime"`
	FileExts []string `json:"exts"`
}

// Style is one of the visual design styles available for an export format.
type Style struct {
	Format      string
	ShortName   string
	Name        string
	Description string
	APIPrice    float64
}

// DocumentOptions tweaks how the server analyzes an uploaded manuscript.
type DocumentOptions struct {
	// Filetype tells the server how to read the uploaded bytes. Defaults
	// to "doc".
	Filetype string
	// SkipStructure uploads the document without running structure
	// detection heuristics.
	SkipStructure bool
}

// Response payload shapes. Decoding happens against these and is copied onto
// the public domain objects only after a successful request.

type errorPayload struct {
	Errors []struct {
		Description string `json:"description"`
	} `json:"errors"`
}

type profilePayload struct {
	User struct {
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
	} `json:"user"`
}

type stylesPayload struct {
	Styles []struct {
		Name string `json:"name"`
		Info struct {
			Name        string  `json:"name"`
			Description string  `json:"description"`
			APIPrice    float64 `json:"price-api"`
		} `json:"info"`
	} `json:"styles"`
}

type formatsPayload struct {
	Formats struct {
		Import []Format `json:"import"`
		Export []Format `json:"export"`
	} `json:"formats"`
}

type bookflowPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Step      string `json:"step"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Copyright string `json:"copyright"`
	ISBN      string `json:"isbn"`
	Language  string `json:"language"`
	Pubdate   string `json:"pubdate"`
	Publisher string `json:"publisher"`
	Credit    *struct {
		Type string `json:"type"`
	} `json:"credit"`
}

type bookPayload struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Created   string            `json:"created"`
	Bookflows []bookflowPayload `json:"bookflows"`
}

type bookEnvelope struct {
	Book bookPayload `json:"book"`
}

type booksEnvelope struct {
	Books []bookPayload `json:"books"`
}

type bookflowEnvelope struct {
	Bookflow bookflowPayload `json:"bookflow"`
}

type bookflowsEnvelope struct {
	Bookflows []bookflowPayload `json:"bookflows"`
}

type conversionPayload struct {
	DownloadID string `json:"download_id"`
	Status     string `json:"status"`
}

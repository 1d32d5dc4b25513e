package onboarding

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

const (
	MessageInstalling = "Installing"
	MessageSuccess    = "Success"
	MessageError      = "Error"
	MessageInvalid    = "Invalid content!"

	// AllImported marks the end of a content import in num_of_imported_posts.
	AllImported = "all"
)

// Response is one answer of the chunked step protocol. A response carrying
// URL is a redirect the client posts back as-is; Done ends the unit; Error
// fails it.
type Response struct {
	URL                string   `json:"url,omitempty"`
	Action             string   `json:"action,omitempty"`
	Proceed            string   `json:"proceed,omitempty"`
	Content            string   `json:"content,omitempty"`
	Nonce              string   `json:"_wpnonce,omitempty"`
	SelectedIndex      *int     `json:"selected_index,omitempty"`
	Cursor             string   `json:"cursor,omitempty"`
	Plugin             []string `json:"plugin,omitempty"`
	TGMPAPage          string   `json:"tgmpa-page,omitempty"`
	PluginStatus       string   `json:"plugin_status,omitempty"`
	Action2            int      `json:"action2,omitempty"`
	Message            string   `json:"message"`
	Logs               string   `json:"logs"`
	Errors             string   `json:"errors"`
	NumOfImportedPosts any      `json:"num_of_imported_posts,omitempty"`
	Done               int      `json:"done,omitempty"`
	Error              int      `json:"error,omitempty"`
	Hash               string   `json:"hash,omitempty"`
}

func (r Response) IsRedirect() bool { return r.URL != "" }

// Sign sets Hash to the md5 of the payload without its hash.
func (r Response) Sign() Response {
	r.Hash = ""
	raw, err := json.Marshal(r)
	if err != nil {
		return r
	}
	sum := md5.Sum(raw)
	r.Hash = hex.EncodeToString(sum[:])
	return r
}

func errorResponse(message string) Response {
	return Response{Error: 1, Message: message}
}

// StepRequest is what the client posts for one content unit.
type StepRequest struct {
	Content       string `form:"content" json:"content"`
	Proceed       bool   `form:"proceed" json:"proceed"`
	SelectedIndex int    `form:"selected_index" json:"selected_index"`
	Cursor        string `form:"cursor" json:"cursor"`
}

func intPtr(n int) *int { return &n }

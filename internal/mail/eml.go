// Package mail parses uploaded .eml files into the header, body, and
// attachment pieces the intake workflow consumes. Outlook .msg files are
// not parsed; they are reported per-file so the rest of a batch still
// processes.
package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Attachment is a file carried by an email. Inline images keep their
// Content-ID so they can be told apart from regular attachments.
type Attachment struct {
	Filename  string
	Content   []byte
	ContentID string
	MimeType  string
}

// Email is a parsed .eml message.
type Email struct {
	Header       string // From/To/Subject/Date block, one field per line
	Body         string // concatenated text/plain parts
	Attachments  []Attachment
	InlineImages []Attachment
}

// imageExtensions marks attachments treated as images.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

func isImageFilename(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// wordDecoder decodes RFC 2047 encoded-words in any charset x/text knows.
var wordDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

func decodeHeader(raw string) string {
	decoded, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ParseEML parses a raw .eml message.
func ParseEML(data []byte) (*Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "mail: parse eml")
	}

	email := &Email{
		Header: fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\nDate: %s\n",
			decodeHeader(msg.Header.Get("From")),
			decodeHeader(msg.Header.Get("To")),
			decodeHeader(msg.Header.Get("Subject")),
			msg.Header.Get("Date"),
		),
	}

	contentType := msg.Header.Get("Content-Type")
	encoding := msg.Header.Get("Content-Transfer-Encoding")
	if err := walkPart(email, msg.Body, contentType, encoding, "", "", ""); err != nil {
		return nil, err
	}

	return email, nil
}

// walkPart recursively processes one MIME part.
func walkPart(email *Email, r io.Reader, contentType, encoding, disposition, dispFilename, contentID string) error {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// No or broken Content-Type: treat the part as plain text.
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return eris.New("mail: multipart without boundary")
		}
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return eris.Wrap(err, "mail: read multipart")
			}
			disp, dispParams, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
			filename := dispParams["filename"]
			if filename == "" {
				filename = part.FileName()
			}
			err = walkPart(email, part,
				part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"),
				disp,
				decodeHeader(filename),
				part.Header.Get("Content-Id"),
			)
			if err != nil {
				return err
			}
		}
	}

	content, err := decodeBody(r, encoding)
	if err != nil {
		return err
	}

	filename := dispFilename
	isAttachment := disposition == "attachment" || filename != ""

	if !isAttachment && strings.HasPrefix(mediaType, "text/plain") {
		email.Body += decodeCharset(content, params["charset"]) + "\n"
		return nil
	}

	if filename == "" {
		// Non-text part without a filename carries nothing usable.
		return nil
	}

	att := Attachment{
		Filename: filename,
		Content:  content,
		MimeType: mediaType,
	}
	// Images carrying a Content-ID are embedded in the message body
	// rather than attached.
	if contentID != "" && isImageFilename(filename) {
		att.ContentID = strings.Trim(contentID, "<>")
		email.InlineImages = append(email.InlineImages, att)
		return nil
	}
	email.Attachments = append(email.Attachments, att)
	return nil
}

func decodeBody(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "mail: decode part body")
	}
	return data, nil
}

func decodeCharset(content []byte, charset string) string {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "us-ascii") {
		return string(content)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(content)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), content)
	if err != nil {
		return string(content)
	}
	return string(decoded)
}

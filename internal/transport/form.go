package transport

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

type formField struct{ name, value string }

type formFile struct {
	field, filename, contentType string
	r                            io.Reader
}

// Form is a multipart/form-data body. It is streamed as-is and the
// multipart writer chooses the boundary.
type Form struct {
	fields []formField
	files  []formFile
}

// NewForm returns an empty multipart body.
func NewForm() *Form { return &Form{} }

// Set adds or replaces a plain field.
func (f *Form) Set(name, value string) {
	for i := range f.fields {
		if f.fields[i].name == name {
			f.fields[i].value = value
			return
		}
	}
	f.fields = append(f.fields, formField{name: name, value: value})
}

// SetFile adds a file part. An empty contentType defaults to application/octet-stream.
func (f *Form) SetFile(field, filename, contentType string, r io.Reader) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	f.files = append(f.files, formFile{field: field, filename: filename, contentType: contentType, r: r})
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encode streams the form through a pipe and returns the reader together
// with the content type carrying the boundary. The writer goroutine exits
// once the reader is drained or closed.
func (f *Form) encode() (*io.PipeReader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(f.write(mw))
	}()
	return pr, mw.FormDataContentType()
}

func (f *Form) write(mw *multipart.Writer) error {
	for _, fld := range f.fields {
		if err := mw.WriteField(fld.name, fld.value); err != nil {
			return err
		}
	}
	for _, ff := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(ff.field), quoteEscaper.Replace(ff.filename)))
		h.Set("Content-Type", ff.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, ff.r); err != nil {
			return err
		}
	}
	return mw.Close()
}

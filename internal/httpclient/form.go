package httpclient

import (
	"bytes"
	"mime/multipart"
)

// Form collects multipart fields and file parts before encoding.
type Form struct {
	fields []field
	files  []filePart
}

type field struct {
	name, value string
}

type filePart struct {
	field, filename string
	data            []byte
}

// NewForm returns an empty multipart form builder.
func NewForm() *Form { return &Form{} }

// Set appends a plain text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, field{name: name, value: value})
	return f
}

// AddFile appends a file part under the given field name.
func (f *Form) AddFile(fieldName, filename string, data []byte) *Form {
	f.files = append(f.files, filePart{field: fieldName, filename: filename, data: data})
	return f
}

// Encode serializes the form and returns the content type carrying the
// multipart boundary together with the encoded body.
func (f *Form) Encode() (contentType string, body []byte, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fld := range f.fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return "", nil, err
		}
	}
	for _, fp := range f.files {
		part, err := w.CreateFormFile(fp.field, fp.filename)
		if err != nil {
			return "", nil, err
		}
		if _, err := part.Write(fp.data); err != nil {
			return "", nil, err
		}
	}
	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}

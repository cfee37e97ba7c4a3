package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"autosendpic/internal/model"

	"github.com/google/uuid"
)

const (
	boundaryPrefix = "---------------------------"
	fileField      = "file"
	fileType       = "image/jpeg"
)

type formField struct {
	name  string
	value string
}

// locationFields returns the text fields in the order the endpoint expects.
func locationFields(loc model.Location) []formField {
	var fixTime string
	if !loc.Time.IsZero() {
		fixTime = strconv.FormatInt(loc.Time.UnixMilli(), 10)
	}

	return []formField{
		{"Accuracy", formatFloat(loc.Accuracy)},
		{"Altitude", formatFloat(loc.Altitude)},
		{"Latitude", formatFloat(loc.Latitude)},
		{"Longitude", formatFloat(loc.Longitude)},
		{"Provider", loc.Provider},
		{"Speed", formatFloat(loc.Speed)},
		{"Time", fixTime},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func newBoundary() string {
	return boundaryPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// encodeForm writes the location fields followed by the image part. Text
// parts carry only a Content-Disposition header.
func encodeForm(item *model.CapturedItem, filename, boundary string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("invalid boundary: %w", err)
	}

	for _, f := range locationFields(item.Location) {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("error writing field %s: %w", f.name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, filename))
	header.Set("Content-Type", fileType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("error creating file part: %w", err)
	}
	if _, err := part.Write(item.Data); err != nil {
		return nil, "", fmt.Errorf("error writing file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("error closing form: %w", err)
	}

	return body, mw.FormDataContentType(), nil
}

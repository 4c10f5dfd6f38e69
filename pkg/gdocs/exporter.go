// Package gdocs copies newly created documents to Google Docs so editors can work on them
// in the browser.
package gdocs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/newsroom/pkg/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const documentMimeType = "application/vnd.google-apps.document"

// Exporter creates one Google Doc per document inside a Drive folder.
type Exporter struct {
	files    *drive.FilesService
	folderID string
	logger   *slog.Logger
}

// NewExporter authorizes against Drive with an OAuth client secret file and a stored token
// file. No interactive consent flow is run: the token must already exist.
func NewExporter(ctx context.Context, credentialsFile, tokenFile, folderID string, logger *slog.Logger) (*Exporter, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, err
	}

	return NewExporterWithOptions(ctx, folderID, logger, option.WithHTTPClient(config.Client(ctx, token)))
}

// NewExporterWithOptions builds the Drive client from explicit client options.
func NewExporterWithOptions(ctx context.Context, folderID string, logger *slog.Logger, opts ...option.ClientOption) (*Exporter, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	return &Exporter{
		files:    service.Files,
		folderID: folderID,
		logger:   logger.With("module", "gdocs_exporter"),
	}, nil
}

// Export uploads the document content as a new Google Doc and returns its file id.
func (e *Exporter) Export(ctx context.Context, document *models.Document) (string, error) {
	metadata := &drive.File{
		Name:        document.Name,
		Description: document.Description,
		MimeType:    documentMimeType,
	}

	if e.folderID != "" {
		metadata.Parents = []string{e.folderID}
	}

	file, err := e.files.Create(metadata).
		Media(strings.NewReader(document.Content), googleapi.ContentType("text/plain")).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to create Google Doc: %w", err)
	}

	e.logger.InfoContext(ctx, "Document exported", "document_id", document.ID, "google_doc_id", file.Id)

	return file.Id, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}

	err = json.NewDecoder(f).Decode(token)
	if err != nil {
		return nil, fmt.Errorf("unable to decode token file: %w", err)
	}

	return token, nil
}

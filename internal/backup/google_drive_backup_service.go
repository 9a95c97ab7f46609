package backup

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/internal/workouts/csvio"
	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/internal/workouts/volume"
)

const (
	RootBackupsFolderName = "liftlog-backup"
	folderMimeType        = "application/vnd.google-apps.folder"
	backupMimeType        = "text/csv"
)

type setsSource interface {
	ListAll(ctx context.Context, params sets.FilterParams) ([]volume.LoggedSet, error)
}

type Params struct {
	Sets setsSource
	// older backups get deleted; 0 keeps all of them
	BackupsToKeep int
	// service accounts own their files, share them with a real account to see them in drive
	ShareWithEmail string
	MetricsManager *metrics.Manager
	ClientOptions  []option.ClientOption
}

// GoogleDriveBackupService uploads CSV exports of all the logged sets to a google drive folder.
type GoogleDriveBackupService struct {
	sets            setsSource
	service         *drive.Service
	backupsFolderId string
	backupsToKeep   int
	shareWithEmail  string
	metricsManager  *metrics.Manager
}

// NewTracedDriveHTTPClient returns an authorized drive http client, with otel instrumented transport.
func NewTracedDriveHTTPClient(ctx context.Context, credentialsJson []byte) (*http.Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJson, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	baseClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   2 * time.Minute,
	}
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, baseClient), creds.TokenSource), nil
}

func NewGoogleDriveBackupService(ctx context.Context, params Params) (*GoogleDriveBackupService, error) {
	// https://github.com/googleapis/google-api-go-client/blob/main/drive/v3/drive-gen.go
	driveService, err := drive.NewService(ctx, params.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	s := &GoogleDriveBackupService{
		sets:           params.Sets,
		service:        driveService,
		backupsToKeep:  params.BackupsToKeep,
		shareWithEmail: params.ShareWithEmail,
		metricsManager: params.MetricsManager,
	}

	rootFolderQuery := fmt.Sprintf("mimeType = '%s' and trashed = false and name = '%s'", folderMimeType, RootBackupsFolderName)
	backupFolders, err := driveService.
		Files.List().
		Q(rootFolderQuery).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	switch len(backupFolders.Files) {
	case 0:
		log.Println("root backups folder not found, creating ...")
		s.backupsFolderId, err = s.createRootBackupsFolder(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create root backups folder: %w", err)
		}
		log.Printf("new root backups folder created: %s", s.backupsFolderId)
	case 1:
		s.backupsFolderId = backupFolders.Files[0].Id
		log.Printf("found backups folder ID: %s", s.backupsFolderId)
	default:
		s.backupsFolderId = backupFolders.Files[0].Id
		log.Warnf("attention: found %d root backups folders, will take the first one: %s", len(backupFolders.Files), s.backupsFolderId)
	}

	return s, nil
}

// DoBackup uploads a CSV export of all the sets and prunes the old backups.
// Returns the name of the new backup file.
func (s *GoogleDriveBackupService) DoBackup(ctx context.Context, baseTime time.Time) (_ string, err error) {
	ctx, span := tracing.GlobalBackupTracer.Start(ctx, "backup.gdrive.do")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	begin := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
		}
		if s.metricsManager != nil {
			s.metricsManager.CounterBackups.WithLabelValues(result).Inc()
			s.metricsManager.HistBackupDuration.Observe(time.Since(begin).Seconds())
		}
	}()

	allSets, err := s.sets.ListAll(ctx, sets.FilterParams{})
	if err != nil {
		return "", fmt.Errorf("get sets to backup: %w", err)
	}
	span.SetAttributes(attribute.Int("backup.sets", len(allSets)))

	var csvBuf bytes.Buffer
	if err := csvio.Write(&csvBuf, allSets); err != nil {
		return "", fmt.Errorf("write backup csv: %w", err)
	}

	fileName := fmt.Sprintf("liftlog-%s.csv", baseTime.UTC().Format("20060102-150405"))
	fileMeta := &drive.File{
		Name:     fileName,
		MimeType: backupMimeType,
		Parents:  []string{s.backupsFolderId},
	}
	backupFile, err := s.service.
		Files.Create(fileMeta).
		Fields("id, parents").
		Media(bytes.NewReader(csvBuf.Bytes())).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to create backup file: %w", fileName, err)
	}
	log.Printf("backup file %s with %d sets saved: %s", fileName, len(allSets), backupFile.Id)

	if err := s.share(ctx, backupFile.Id); err != nil {
		return fileName, fmt.Errorf("%s: failed to share backup file: %w", fileName, err)
	}

	deleted, err := s.pruneOldBackups(ctx)
	if err != nil {
		return fileName, fmt.Errorf("prune old backups: %w", err)
	}
	if deleted > 0 {
		log.Printf("%d old backup files deleted", deleted)
	}

	return fileName, nil
}

func (s *GoogleDriveBackupService) pruneOldBackups(ctx context.Context) (int, error) {
	if s.backupsToKeep <= 0 {
		return 0, nil
	}

	backups, err := s.backupFiles(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= s.backupsToKeep {
		return 0, nil
	}

	deleted := 0
	for _, file := range backups[s.backupsToKeep:] {
		if err := s.service.Files.Delete(file.Id).Context(ctx).Do(); err != nil {
			return deleted, fmt.Errorf("delete %s (%s): %w", file.Name, file.Id, err)
		}
		log.Debugf("old backup deleted: %s (%s)", file.Name, file.Id)
		deleted++
	}

	return deleted, nil
}

// backupFiles lists the backups, newest first
func (s *GoogleDriveBackupService) backupFiles(ctx context.Context) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", s.backupsFolderId, folderMimeType)
	backups, err := s.service.
		Files.List().
		Q(query).
		OrderBy("createdTime desc").
		Fields("files(id, name, createdTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	return backups.Files, nil
}

func (s *GoogleDriveBackupService) createRootBackupsFolder(ctx context.Context) (string, error) {
	backupsFolderMeta := &drive.File{
		Name:     RootBackupsFolderName,
		MimeType: folderMimeType,
	}

	bfRes, err := s.service.
		Files.Create(backupsFolderMeta).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	if err := s.share(ctx, bfRes.Id); err != nil {
		return bfRes.Id, fmt.Errorf("failed to share root backup folder: %w", err)
	}

	return bfRes.Id, nil
}

func (s *GoogleDriveBackupService) share(ctx context.Context, fileId string) error {
	if s.shareWithEmail == "" {
		return nil
	}

	permission := &drive.Permission{
		EmailAddress: s.shareWithEmail,
		Type:         "user",
		Role:         "reader",
	}
	createdPermission, err := s.service.Permissions.
		Create(fileId, permission).
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	log.Debugf("permission %s created for %s", createdPermission.Id, fileId)
	return nil
}

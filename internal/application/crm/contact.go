package crm

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
	"github.com/hubcrm/backend/internal/infrastructure/logger"
)

const contactTable = "contact_c"

var contactFields = []string{
	record.FieldID, "first_name_c", "last_name_c", "email_c", "phone_c", "company_c",
	"position_c", "photo_c", "notes_c", "tags_c", "created_at_c", "updated_at_c",
}

// CreateContactRequest is the contact form
type CreateContactRequest struct {
	FirstName string   `json:"firstName" binding:"max=100"`
	LastName  string   `json:"lastName" binding:"max=100"`
	Email     string   `json:"email" binding:"max=254"`
	Phone     string   `json:"phone" binding:"max=50"`
	Company   string   `json:"company" binding:"max=200"`
	Position  string   `json:"position" binding:"max=100"`
	Photo     string   `json:"photo" binding:"max=500"`
	Notes     string   `json:"notes" binding:"max=5000"`
	Tags      []string `json:"tags"`
}

// UpdateContactRequest changes the provided contact fields
type UpdateContactRequest struct {
	FirstName *string   `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string   `json:"lastName" binding:"omitempty,max=100"`
	Email     *string   `json:"email" binding:"omitempty,max=254"`
	Phone     *string   `json:"phone" binding:"omitempty,max=50"`
	Company   *string   `json:"company" binding:"omitempty,max=200"`
	Position  *string   `json:"position" binding:"omitempty,max=100"`
	Photo     *string   `json:"photo" binding:"omitempty,max=500"`
	Notes     *string   `json:"notes" binding:"omitempty,max=5000"`
	Tags      *[]string `json:"tags"`
}

// ContactResponse is the contact view model
type ContactResponse struct {
	ID        int64    `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	FullName  string   `json:"fullName"`
	Initials  string   `json:"initials"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Company   string   `json:"company"`
	Position  string   `json:"position"`
	Photo     string   `json:"photo"`
	PhotoURL  string   `json:"photoUrl,omitempty"`
	Notes     string   `json:"notes"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// PhotoUploadRequest asks for an upload URL for a contact photo
type PhotoUploadRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required,max=100"`
}

// PhotoUploadResponse tells the client where to PUT the photo. Key is then
// saved as the contact's photo.
type PhotoUploadResponse struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var photoExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

const photoKeyPrefix = "contacts/"

func contactFromRecord(rec record.Record) crm.Contact {
	return crm.Contact{
		ID:        idOf(rec),
		FirstName: text(rec, "first_name_c"),
		LastName:  text(rec, "last_name_c"),
		Email:     text(rec, "email_c"),
		Phone:     text(rec, "phone_c"),
		Company:   text(rec, "company_c"),
		Position:  text(rec, "position_c"),
		Photo:     text(rec, "photo_c"),
		Notes:     text(rec, "notes_c"),
		Tags:      record.SplitTags(rec["tags_c"]),
		CreatedAt: text(rec, "created_at_c"),
		UpdatedAt: text(rec, "updated_at_c"),
	}
}

func contactRecord(c *crm.Contact) record.Record {
	return record.Record{
		"first_name_c": c.FirstName,
		"last_name_c":  c.LastName,
		"email_c":      c.Email,
		"phone_c":      c.Phone,
		"company_c":    c.Company,
		"position_c":   c.Position,
		"photo_c":      c.Photo,
		"notes_c":      c.Notes,
		"tags_c":       record.JoinTags(c.Tags),
	}
}

func (r *CreateContactRequest) toEntity() crm.Contact {
	return crm.Contact{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.TrimSpace(r.Email),
		Phone:     r.Phone,
		Company:   r.Company,
		Position:  r.Position,
		Photo:     r.Photo,
		Notes:     r.Notes,
		Tags:      record.SplitTags(r.Tags),
	}
}

func (r *UpdateContactRequest) applyTo(c *crm.Contact) {
	setText(&c.FirstName, r.FirstName)
	setText(&c.LastName, r.LastName)
	setText(&c.Email, r.Email)
	setText(&c.Phone, r.Phone)
	setText(&c.Company, r.Company)
	setText(&c.Position, r.Position)
	setText(&c.Photo, r.Photo)
	setText(&c.Notes, r.Notes)
	setTags(&c.Tags, r.Tags)
}

func (r *UpdateContactRequest) toRecord() record.Record {
	p := patch{}
	p.text("first_name_c", r.FirstName)
	p.text("last_name_c", r.LastName)
	p.text("email_c", r.Email)
	p.text("phone_c", r.Phone)
	p.text("company_c", r.Company)
	p.text("position_c", r.Position)
	p.text("photo_c", r.Photo)
	p.text("notes_c", r.Notes)
	p.tags("tags_c", r.Tags)
	return record.Record(p)
}

// ContactService manages contacts and their photos
type ContactService struct {
	records records[crm.Contact]
	storage ObjectStorage
	now     func() time.Time
}

func newContactService(client record.Client, o options) *ContactService {
	return &ContactService{
		records: records[crm.Contact]{
			client: client,
			table: table[crm.Contact]{
				entity: "contact",
				name:   contactTable,
				fields: contactFields,
				order:  record.OrderBy{FieldName: record.FieldID, SortType: record.SortDesc},
				decode: contactFromRecord,
			},
		},
		storage: o.storage,
		now:     o.now,
	}
}

// List returns a page of contacts matching f and the number of matches
func (s *ContactService) List(ctx context.Context, f crm.ListFilter) ([]ContactResponse, int64, error) {
	items, total, err := s.records.list(ctx, f, func(all []crm.Contact, f crm.ListFilter) ([]crm.Contact, error) {
		return crm.FilterContacts(all, f, s.now())
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]ContactResponse, len(items))
	for i := range items {
		out[i] = s.response(ctx, &items[i])
	}
	return out, total, nil
}

// GetByID returns one contact
func (s *ContactService) GetByID(ctx context.Context, id int64) (*ContactResponse, error) {
	c, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.response(ctx, &c)
	return &resp, nil
}

// GetRecord returns the contact as stored by the backend
func (s *ContactService) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	return s.records.getRaw(ctx, id)
}

// Create validates and stores a new contact
func (s *ContactService) Create(ctx context.Context, req CreateContactRequest) (*ContactResponse, error) {
	c := req.toEntity()
	if err := c.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "create", err)
	}
	created, err := s.records.create(ctx, contactRecord(&c))
	if err != nil {
		return nil, err
	}
	resp := s.response(ctx, &created)
	return &resp, nil
}

// Update applies the provided fields. A photo key must belong to the
// contact and must have been uploaded.
func (s *ContactService) Update(ctx context.Context, id int64, req UpdateContactRequest) (*ContactResponse, error) {
	c, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.applyTo(&c)
	if err := c.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "update", err)
	}
	if req.Photo != nil {
		if err := s.checkPhoto(ctx, id, *req.Photo); err != nil {
			return nil, s.records.invalid(ctx, "update", err)
		}
	}

	updated, err := s.records.update(ctx, id, req.toRecord())
	if err != nil {
		return nil, err
	}
	resp := s.response(ctx, &updated)
	return &resp, nil
}

// Delete removes a contact and its uploaded photo
func (s *ContactService) Delete(ctx context.Context, id int64) (int64, error) {
	var photo string
	if s.storage != nil {
		c, err := s.records.get(ctx, id)
		if err != nil {
			return 0, err
		}
		photo = c.Photo
	}

	deleted, err := s.records.delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if strings.HasPrefix(photo, photoKeyPrefix) {
		if err := s.storage.DeleteObject(ctx, photo); err != nil {
			logger.L(ctx).Warn("Failed to delete contact photo", zap.String("key", photo), zap.Error(err))
		}
	}
	return deleted, nil
}

// PhotoUploadURL presigns an upload of a new photo for contact id
func (s *ContactService) PhotoUploadURL(ctx context.Context, id int64, req PhotoUploadRequest) (*PhotoUploadResponse, error) {
	if s.storage == nil {
		return nil, shared.ErrInvalidInput.WithMessage("Photo storage is not configured")
	}

	var errs shared.ValidationErrors
	ext := strings.ToLower(path.Ext(req.Filename))
	if !photoExtensions[ext] {
		errs.Add("filename", "Photo must be a JPEG, PNG, GIF or WebP image")
	}
	if !strings.HasPrefix(strings.ToLower(req.ContentType), "image/") {
		errs.Add("contentType", "Content type must be an image type")
	}
	if err := errs.OrNil(); err != nil {
		return nil, s.records.invalid(ctx, "photo", err)
	}

	if _, err := s.records.get(ctx, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%d/%s%s", photoKeyPrefix, id, uuid.NewString(), ext)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, req.ContentType, 0)
	if err != nil {
		logger.L(ctx).Error("Failed to presign photo upload", zap.Int64("contact_id", id), zap.Error(err))
		return nil, err
	}
	return &PhotoUploadResponse{UploadURL: url, Key: key, ExpiresAt: expiresAt}, nil
}

func (s *ContactService) checkPhoto(ctx context.Context, id int64, photo string) error {
	if !strings.HasPrefix(photo, photoKeyPrefix) || s.storage == nil {
		return nil
	}
	var errs shared.ValidationErrors
	if !strings.HasPrefix(photo, fmt.Sprintf("%s%d/", photoKeyPrefix, id)) {
		errs.Add("photo", "Photo belongs to another contact")
		return errs
	}
	exists, err := s.storage.ObjectExists(ctx, photo)
	if err != nil {
		return err
	}
	if !exists {
		errs.Add("photo", "Photo has not been uploaded")
		return errs
	}
	return nil
}

func (s *ContactService) response(ctx context.Context, c *crm.Contact) ContactResponse {
	resp := ContactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		FullName:  c.FullName(),
		Initials:  c.Initials(),
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Position:  c.Position,
		Photo:     c.Photo,
		Notes:     c.Notes,
		Tags:      c.Tags,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	switch {
	case strings.HasPrefix(c.Photo, photoKeyPrefix) && s.storage != nil:
		url, _, err := s.storage.GenerateDownloadURL(ctx, c.Photo, 0)
		if err != nil {
			logger.L(ctx).Warn("Failed to presign contact photo", zap.String("key", c.Photo), zap.Error(err))
			break
		}
		resp.PhotoURL = url
	case strings.HasPrefix(c.Photo, "http://"), strings.HasPrefix(c.Photo, "https://"):
		resp.PhotoURL = c.Photo
	}
	return resp
}

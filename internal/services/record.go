package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/cryptox"
	"github.com/dmitrijs2005/phonebind/internal/filex"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/repositories/appconfig"
	"github.com/dmitrijs2005/phonebind/internal/repositories/sessions"
)

// pleaType is the appeal category recorded for phone complaints.
const pleaType = "2"

var (
	ErrNoSession   = fmt.Errorf("%w: account has no bound session, log in first", common.ErrValidation)
	ErrMissingFile = fmt.Errorf("%w: attachment does not exist", common.ErrValidation)
)

// SubmissionRequest describes one completed appeal.
type SubmissionRequest struct {
	AccountID      string
	ComplaintPhone string
	UserPhone      string
	CompanyID      string
	CompanyName    string
	PleaReason     string
	FilePath       string
}

func (r SubmissionRequest) missing() []string {
	var out []string
	for name, v := range map[string]string{
		"complaint_phone": r.ComplaintPhone,
		"user_phone":      r.UserPhone,
		"company_id":      r.CompanyID,
		"company_name":    r.CompanyName,
		"plea_reason":     r.PleaReason,
		"file_path":       r.FilePath,
	} {
		if strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	return out
}

// SubmissionRecorder books completed appeals: it counts them against the
// daily quota, appends a submission event and remembers the values for the
// next prompt.
type SubmissionRecorder struct {
	accounts *AccountService
	sessions sessions.Repository
	config   appconfig.Repository
	enc      cryptox.Encoder
	clock    clock.Clock
	log      logging.Logger
}

// NewSubmissionRecorder wires the recorder to its repositories.
func NewSubmissionRecorder(accounts *AccountService, sess sessions.Repository, cfg appconfig.Repository,
	enc cryptox.Encoder, clk clock.Clock, log logging.Logger) *SubmissionRecorder {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &SubmissionRecorder{
		accounts: accounts,
		sessions: sess,
		config:   cfg,
		enc:      enc,
		clock:    clk,
		log:      log.With("component", "submissions"),
	}
}

// Defaults prefills a request for accountID from the account and the last
// recorded values.
func (r *SubmissionRecorder) Defaults(ctx context.Context, accountID string) (SubmissionRequest, error) {
	acc, err := r.accounts.Get(ctx, accountID)
	if err != nil {
		return SubmissionRequest{}, err
	}
	cfg, err := r.config.Load(ctx)
	if err != nil {
		return SubmissionRequest{}, err
	}
	d := cfg.Submission
	req := SubmissionRequest{
		AccountID:      acc.WechatID,
		ComplaintPhone: d.LastComplaintPhone,
		UserPhone:      acc.Phone,
		CompanyID:      d.DefaultCompanyID,
		CompanyName:    d.DefaultCompanyName,
		PleaReason:     d.DefaultPleaReason,
		FilePath:       d.LastFilePath,
	}
	if req.UserPhone == "" {
		req.UserPhone = d.LastUserPhone
	}
	return req, nil
}

// Record books req. The account must have a session with an open id.
func (r *SubmissionRecorder) Record(ctx context.Context, req SubmissionRequest) (models.Account, models.Event, error) {
	req = trimRequest(req)
	if req.AccountID == "" {
		return models.Account{}, nil, ErrEmptyAccountID
	}
	if missing := req.missing(); len(missing) > 0 {
		slices.Sort(missing)
		return models.Account{}, nil, fmt.Errorf("%w: missing %s", common.ErrValidation, strings.Join(missing, ", "))
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		return models.Account{}, nil, fmt.Errorf("%w: %s", ErrMissingFile, req.FilePath)
	}

	sess, err := r.sessions.Get(ctx, req.AccountID)
	if errors.Is(err, sessions.ErrNotFound) || (err == nil && sess.OpenID == "") {
		return models.Account{}, nil, ErrNoSession
	}
	if err != nil {
		return models.Account{}, nil, err
	}

	now := r.clock.Now()
	filename := filex.BuildFilename(req.UserPhone, req.FilePath, now)
	pleaPhone, err := r.enc.EncryptPhone(req.ComplaintPhone)
	if err != nil {
		return models.Account{}, nil, err
	}
	sign, err := r.enc.EncryptSign(sess.OpenID + pleaType + pleaPhone + req.CompanyID + req.CompanyName + req.PleaReason + filename)
	if err != nil {
		return models.Account{}, nil, err
	}

	if _, err := r.accounts.RecordSubmission(ctx, req.AccountID); err != nil {
		return models.Account{}, nil, err
	}
	ev := models.Event{
		models.EventKeyType:     models.EventTypeSubmission,
		models.EventKeyWechatID: req.AccountID,
		"filename":              filename,
		"complaint_phone":       req.ComplaintPhone,
		"user_phone":            req.UserPhone,
		"company_id":            req.CompanyID,
		"company_name":          req.CompanyName,
		"plea_reason":           req.PleaReason,
		"sign":                  sign,
	}
	acc, err := r.accounts.AppendEvent(ctx, req.AccountID, ev)
	if err != nil {
		return models.Account{}, nil, err
	}

	// Quota and event are stored; failing to remember defaults is not fatal.
	if _, err := r.config.Update(ctx, func(cfg *models.AppConfig) error {
		cfg.Submission.LastComplaintPhone = req.ComplaintPhone
		cfg.Submission.LastUserPhone = req.UserPhone
		cfg.Submission.DefaultCompanyID = req.CompanyID
		cfg.Submission.DefaultCompanyName = req.CompanyName
		cfg.Submission.DefaultPleaReason = req.PleaReason
		cfg.Submission.LastFilePath = req.FilePath
		return nil
	}); err != nil {
		r.log.Warn(ctx, "submission defaults not saved", "error", err)
	}

	r.log.Info(ctx, "submission recorded", "account", req.AccountID, "filename", filename, "quota", acc.QuotaCount)
	return acc, acc.Events[len(acc.Events)-1], nil
}

func trimRequest(r SubmissionRequest) SubmissionRequest {
	for _, p := range []*string{&r.AccountID, &r.ComplaintPhone, &r.UserPhone, &r.CompanyID, &r.CompanyName, &r.PleaReason, &r.FilePath} {
		*p = strings.TrimSpace(*p)
	}
	return r
}

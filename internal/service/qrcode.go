package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"qrious/config"
	"qrious/internal/core"
	fluentdModel "qrious/internal/database/fluentd/model"
	"qrious/internal/database/mongodb/model"
	mongoRepo "qrious/internal/database/mongodb/repository"
	"qrious/internal/dto"
	"qrious/internal/encoder"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultListLimit     = 10
	maxListLimit         = 100
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// QRCodeService 產生流程的協調者：驗證 → 身分 → 配額 → 快取 → 編碼與兩階段寫入
type QRCodeService struct {
	trace        *telemetry.Trace
	metric       *telemetry.Metric
	logger       *zap.Logger
	config       *config.Configuration
	identity     *IdentityResolver
	ledger       *QuotaLedger
	cache        *ArtifactCache
	encoder      encoder.Encoder
	store        QRCodeStore
	logRepo      GenerationLogger
	publicURL    string
	storeTimeout time.Duration
	now          func() time.Time
}

func NewQRCodeService(
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	logger *zap.Logger,
	config *config.Configuration,
	identity *IdentityResolver,
	ledger *QuotaLedger,
	cache *ArtifactCache,
	qrEncoder encoder.Encoder,
	store QRCodeStore,
	logRepo GenerationLogger,
) *QRCodeService {
	return &QRCodeService{
		trace:        trace,
		metric:       metric,
		logger:       logger,
		config:       config,
		identity:     identity,
		ledger:       ledger,
		cache:        cache,
		encoder:      qrEncoder,
		store:        store,
		logRepo:      logRepo,
		publicURL:    strings.TrimRight(config.App.PublicURL, "/"),
		storeTimeout: storeTimeout(config),
		now:          time.Now,
	}
}

// Generate 驗證在任何 I/O 之前完成；快取命中不消耗配額
func (s *QRCodeService) Generate(
	ctx context.Context,
	credential core.Credential,
	req *dto.GenerateQRCodeDto,
) (_ *dto.GenerateResultDto, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	content, err := ValidateContent(req.URL)
	if err != nil {
		return nil, err
	}
	name, err := normalizeName(req.Name, content)
	if err != nil {
		return nil, err
	}
	style, err := NormalizeStyle(req.Customization)
	if err != nil {
		return nil, err
	}

	meta := core.TraceGenerateMeta{
		Channel: string(credential.Channel),
		URLLen:  len(content),
		Size:    style.Size,
		Level:   string(style.ErrorCorrectionLevel),
	}
	defer func() { s.trace.ApplyTraceAttributes(span, meta) }()

	caller, err := s.identity.Resolve(ctx, credential)
	if err != nil {
		return nil, err
	}
	meta.Owner = caller.SubjectID()

	usage, err := s.ledger.Admit(ctx, caller)
	if err != nil {
		var appErr *cErr.Error
		if errors.As(err, &appErr) && appErr.ErrorCode() == cErr.QUOTA_EXCEEDED {
			scope, _ := appErr.Details()["scope"].(string)
			s.logGeneration(ctx, caller, "", "denied", scope, usage)
		}
		return nil, err
	}

	cached, err := s.cache.Lookup(ctx, content, caller, style)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		s.cache.RecordHit(ctx, cached, s.now())
		meta.Cached = true
		meta.QRCodeID = cached.ID.Hex()
		s.metric.IncGeneration(caller.Channel(), "cached")
		s.logGeneration(ctx, caller, cached.ID.Hex(), "cached", "", usage)
		return &dto.GenerateResultDto{
			Message: "QR code retrieved from cache",
			QRCode:  toQRCodeDto(cached, true, boolPtr(true)),
			Usage:   &usage,
			Created: false,
		}, nil
	}

	created, err := s.create(ctx, caller, content, name, style, &meta)
	if err != nil {
		s.metric.IncGeneration(caller.Channel(), "failed")
		return nil, err
	}
	consumed := usage.Consumed()
	meta.QRCodeID = created.ID.Hex()
	s.metric.IncGeneration(caller.Channel(), "created")
	s.logGeneration(ctx, caller, created.ID.Hex(), "created", "", consumed)
	return &dto.GenerateResultDto{
		Message: "QR code generated successfully",
		QRCode:  toQRCodeDto(created, true, boolPtr(false)),
		Usage:   &consumed,
		Created: true,
	}, nil
}

// create 兩階段寫入：先以原始內容的圖存 pending 取得 id，再把 /scan/<id> 編碼後 finalize。
// finalize 失敗時刪除 pending 紀錄，不重試。
func (s *QRCodeService) create(
	ctx context.Context,
	caller core.Caller,
	content string,
	name string,
	style core.Style,
	meta *core.TraceGenerateMeta,
) (*model.QRCode, error) {
	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return nil, cErr.Unauthorized("invalid caller")
	}

	meta.Phase = "encode_raw"
	rawImage, err := s.encoder.Encode(ctx, content, style)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	artifact := &model.QRCode{
		ID:            primitive.NewObjectID(),
		Name:          name,
		URL:           content,
		QRCodeImage:   encoder.DataURL(rawImage),
		UserID:        userID,
		GeneratedVia:  caller.Channel(),
		Customization: style,
		StyleKey:      style.Key(),
		State:         core.ArtifactPending,
		AccessCount:   1,
		LastAccessed:  &now,
		CreatedAt:     now,
	}
	if keyCaller, ok := caller.(*core.APIKeyCaller); ok {
		if keyID, ok := objectIDOf(keyCaller.KeyID); ok {
			artifact.APIKeyID = &keyID
		}
	}

	meta.Phase = "persist_pending"
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	artifact, err = s.store.Create(storeCtx, artifact)
	cancel()
	if err != nil {
		return nil, storeErr(err, "artifact not found")
	}

	meta.Phase = "encode_scan_url"
	scanImage, err := s.encoder.Encode(ctx, s.ScanURL(artifact.ID.Hex()), style)
	if err != nil {
		s.discardPending(ctx, artifact.ID)
		return nil, err
	}
	image := encoder.DataURL(scanImage)

	meta.Phase = "finalize"
	storeCtx, cancel = context.WithTimeout(ctx, s.storeTimeout)
	err = s.store.Finalize(storeCtx, artifact.ID, image)
	cancel()
	if err != nil {
		s.discardPending(ctx, artifact.ID)
		return nil, storeErr(err, "artifact not found")
	}
	artifact.QRCodeImage = image
	artifact.State = core.ArtifactFinalized
	meta.Phase = "done"
	return artifact, nil
}

func (s *QRCodeService) discardPending(ctx context.Context, id primitive.ObjectID) {
	// 原 ctx 可能已逾時，清理使用獨立期限
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()
	if err := s.store.DeleteByID(cleanupCtx, id); err != nil {
		s.logger.Warn("[QRCode] discard pending artifact failed",
			zap.String("qrCodeId", id.Hex()),
			zap.Error(err),
		)
	}
}

// Preview 只驗證並直接編碼原始內容，不寫入、不查快取、不計配額
func (s *QRCodeService) Preview(ctx context.Context, req *dto.PreviewQRCodeDto) (_ *dto.PreviewResultDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	content, err := ValidateContent(req.URL)
	if err != nil {
		return nil, err
	}
	style, err := NormalizeStyle(req.Customization)
	if err != nil {
		return nil, err
	}
	image, err := s.encoder.Encode(ctx, content, style)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewResultDto{
		Message:       "Preview generated successfully",
		QRData:        encoder.DataURL(image),
		Customization: style,
	}, nil
}

func (s *QRCodeService) List(
	ctx context.Context,
	caller core.Caller,
	query *dto.QRCodeListQueryDto,
) (_ *dto.QRCodeListDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return nil, cErr.Unauthorized("invalid caller")
	}
	page, limit := int64(1), int64(defaultListLimit)
	if query.Page != nil {
		page = *query.Page
	}
	if query.Limit != nil {
		limit = *query.Limit
	}
	if page < 1 {
		return nil, cErr.BadRequestParams("page must be at least 1")
	}
	if limit < 1 || limit > maxListLimit {
		return nil, cErr.BadRequestParams(fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
	}
	sortBy := query.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	if !mongoRepo.IsQRCodeSortField(sortBy) {
		return nil, cErr.BadRequestParams("unsupported sortBy: " + sortBy)
	}
	sortOrder := -1
	switch query.SortOrder {
	case "", "desc":
	case "asc":
		sortOrder = 1
	default:
		return nil, cErr.BadRequestParams("sortOrder must be asc or desc")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	qrCodes, total, err := s.store.ListOwned(ctx, model.QRCodeListQuery{
		UserID:    userID,
		Page:      page,
		Limit:     limit,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	})
	if err != nil {
		return nil, storeErr(err, "artifact not found")
	}

	items := make([]*dto.QRCodeDto, 0, len(qrCodes))
	for _, qrCode := range qrCodes {
		items = append(items, toQRCodeDto(qrCode, false, nil))
	}
	return &dto.QRCodeListDto{
		QRCodes:    items,
		Pagination: dto.NewPagination(page, limit, total),
	}, nil
}

// Get 擁有者限定；直接取用也會累加 accessCount
func (s *QRCodeService) Get(ctx context.Context, caller core.Caller, id string) (_ *dto.QRCodeDetailDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	qrCodeID, userID, err := ownedIDs(caller, id)
	if err != nil {
		return nil, err
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	artifact, err := s.store.FindOwned(storeCtx, qrCodeID, userID)
	cancel()
	if err != nil {
		return nil, storeErr(err, "QR code not found")
	}
	s.cache.RecordHit(ctx, artifact, s.now())
	return &dto.QRCodeDetailDto{QRCode: toQRCodeDto(artifact, true, nil)}, nil
}

// Delete 以 (id, owner) 過濾，非擁有者與不存在一律 404
func (s *QRCodeService) Delete(ctx context.Context, caller core.Caller, id string) (_ *dto.MessageDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	qrCodeID, userID, err := ownedIDs(caller, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	deleted, err := s.store.DeleteOwned(ctx, qrCodeID, userID)
	if err != nil {
		return nil, storeErr(err, "QR code not found")
	}
	if !deleted {
		return nil, cErr.NotFound("QR code not found")
	}
	return &dto.MessageDto{Message: "QR code deleted successfully"}, nil
}

func (s *QRCodeService) Analytics(
	ctx context.Context,
	caller core.Caller,
	query *dto.AnalyticsQueryDto,
) (_ *dto.AnalyticsDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return nil, cErr.Unauthorized("invalid caller")
	}
	days := int64(defaultAnalyticsDays)
	if query.Days != nil {
		days = *query.Days
	}
	if days < 1 || days > maxAnalyticsDays {
		return nil, cErr.BadRequestParams(fmt.Sprintf("days must be between 1 and %d", maxAnalyticsDays))
	}
	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	analytics, err := s.store.Analytics(ctx, userID, since)
	if err != nil {
		return nil, storeErr(err, "analytics not found")
	}

	result := &dto.AnalyticsDto{
		Period:            dto.PeriodDto{Days: days, Since: since},
		TotalQRCodes:      analytics.TotalQRCodes,
		TotalAccesses:     analytics.TotalAccesses,
		TotalScans:        analytics.TotalScans,
		RecentQRCodes:     analytics.RecentQRCodes,
		GenerationMethods: make([]dto.MethodCountDto, 0, len(analytics.GenerationMethods)),
		TopQRCodes:        make([]*dto.QRCodeDto, 0, len(analytics.TopQRCodes)),
	}
	for _, method := range analytics.GenerationMethods {
		result.GenerationMethods = append(result.GenerationMethods, dto.MethodCountDto{Method: method.Method, Count: method.Count})
	}
	for _, top := range analytics.TopQRCodes {
		result.TopQRCodes = append(result.TopQRCodes, toQRCodeDto(top, false, nil))
	}
	return result, nil
}

// ScanURL 產物圖片實際編碼的內容
func (s *QRCodeService) ScanURL(id string) string {
	return s.publicURL + "/scan/" + id
}

func (s *QRCodeService) logGeneration(
	ctx context.Context,
	caller core.Caller,
	qrCodeID string,
	result string,
	scope string,
	usage core.Usage,
) {
	entry := fluentdModel.GenerationLog{
		UserID:      caller.SubjectID(),
		Channel:     string(caller.Channel()),
		QRCodeID:    qrCodeID,
		Result:      result,
		Scope:       scope,
		HourlyUsed:  usage.Hourly.Used,
		DailyUsed:   usage.Daily.Used,
		MonthlyUsed: usage.Monthly.Used,
		Envelope:    fluentdModel.Envelope{LoggedAt: fluentdModel.Timestamp(s.now())},
	}
	if keyCaller, ok := caller.(*core.APIKeyCaller); ok {
		entry.APIKeyID = keyCaller.KeyID
	}
	if err := s.logRepo.LogGeneration(ctx, entry); err != nil {
		s.logger.Warn("[QRCode] fluentd generation log failed", zap.Error(err))
	}
}

// ValidateContent url 必填、長度上限 2048，且必須是絕對 http/https 網址
func ValidateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", cErr.InvalidContent("url is required")
	}
	if len(content) > core.MaxContentLength {
		return "", cErr.InvalidContent(fmt.Sprintf("url must be at most %d characters", core.MaxContentLength))
	}
	parsed, err := url.Parse(content)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", cErr.InvalidContent("url must be an absolute http or https URL")
	}
	return content, nil
}

func normalizeName(raw string, content string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > core.MaxNameLength {
		return "", cErr.InvalidContent(fmt.Sprintf("name must be at most %d characters", core.MaxNameLength))
	}
	if name == "" {
		if parsed, err := url.Parse(content); err == nil {
			name = parsed.Host
		}
	}
	return name, nil
}

// NormalizeStyle 缺少的欄位套預設，超出範圍直接拒絕
func NormalizeStyle(in *dto.StyleDto) (core.Style, error) {
	style := core.DefaultStyle()
	if in == nil {
		return style, nil
	}
	if in.Size != nil {
		if *in.Size < core.StyleMinSize || *in.Size > core.StyleMaxSize {
			return style, cErr.InvalidStyle(fmt.Sprintf("size must be between %d and %d", core.StyleMinSize, core.StyleMaxSize))
		}
		style.Size = *in.Size
	}
	if in.Margin != nil {
		if *in.Margin < core.StyleMinMargin || *in.Margin > core.StyleMaxMargin {
			return style, cErr.InvalidStyle(fmt.Sprintf("margin must be between %d and %d", core.StyleMinMargin, core.StyleMaxMargin))
		}
		style.Margin = *in.Margin
	}
	if in.ForegroundColor != nil {
		if !hexColorPattern.MatchString(*in.ForegroundColor) {
			return style, cErr.InvalidStyle("foregroundColor must match #RRGGBB")
		}
		style.ForegroundColor = strings.ToUpper(*in.ForegroundColor)
	}
	if in.BackgroundColor != nil {
		if !hexColorPattern.MatchString(*in.BackgroundColor) {
			return style, cErr.InvalidStyle("backgroundColor must match #RRGGBB")
		}
		style.BackgroundColor = strings.ToUpper(*in.BackgroundColor)
	}
	if in.ErrorCorrectionLevel != nil {
		level := core.ErrorCorrection(strings.ToUpper(*in.ErrorCorrectionLevel))
		switch level {
		case core.ErrorCorrectionL, core.ErrorCorrectionM, core.ErrorCorrectionQ, core.ErrorCorrectionH:
			style.ErrorCorrectionLevel = level
		default:
			return style, cErr.InvalidStyle("errorCorrectionLevel must be one of L, M, Q, H")
		}
	}
	return style, nil
}

func ownedIDs(caller core.Caller, id string) (primitive.ObjectID, primitive.ObjectID, error) {
	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, cErr.Unauthorized("invalid caller")
	}
	qrCodeID, ok := objectIDOf(id)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, cErr.NotFound("QR code not found")
	}
	return qrCodeID, userID, nil
}

func toQRCodeDto(m *model.QRCode, withImage bool, cached *bool) *dto.QRCodeDto {
	style := m.Customization
	out := &dto.QRCodeDto{
		ID:            m.ID.Hex(),
		Name:          m.Name,
		URL:           m.URL,
		Customization: &style,
		GeneratedVia:  m.GeneratedVia,
		AccessCount:   m.AccessCount,
		LastAccessed:  m.LastAccessed,
		ScanCount:     m.ScanCount,
		LastScanned:   m.LastScanned,
		CreatedAt:     m.CreatedAt,
		Cached:        cached,
	}
	if withImage {
		out.QRData = m.QRCodeImage
	}
	for _, event := range m.ScanHistory {
		out.ScanHistory = append(out.ScanHistory, dto.ScanEventDto{
			Timestamp: event.Timestamp,
			UserAgent: event.UserAgent,
			IPAddress: event.IPAddress,
			Referrer:  event.Referrer,
		})
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}

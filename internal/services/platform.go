package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/render"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const ProviderDiscord = "discord"

var (
	ErrPlatformDisabled  = errors.New("platform linking is not configured")
	ErrPlatformNotLinked = errors.New("no platform account linked")
	ErrInvalidState      = errors.New("invalid or expired link state")
)

// PlatformLinkService connects a profile to the user's chat platform
// account and derives platform media (avatar, banner, avatar decoration)
// from it.
type PlatformLinkService struct {
	DB  *gorm.DB
	Cfg config.DiscordConfig
}

func NewPlatformLinkService(db *gorm.DB, cfg config.DiscordConfig) *PlatformLinkService {
	return &PlatformLinkService{DB: db, Cfg: cfg}
}

type OAuthState struct {
	Provider  string    `json:"provider"`
	UserID    uuid.UUID `json:"userId"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *PlatformLinkService) OAuthConfig() (*oauth2.Config, error) {
	if !s.Cfg.OAuthEnabled() {
		return nil, ErrPlatformDisabled
	}
	base := strings.TrimSuffix(strings.TrimRight(s.Cfg.APIBaseURL, "/"), "/v10")
	return &oauth2.Config{
		ClientID:     s.Cfg.ClientID,
		ClientSecret: s.Cfg.ClientSecret,
		RedirectURL:  s.Cfg.RedirectURL,
		Scopes:       []string{"identify"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/oauth2/authorize",
			TokenURL:  base + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, nil
}

func (s *PlatformLinkService) GenerateState(userID uuid.UUID) (*OAuthState, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &OAuthState{
		Provider:  ProviderDiscord,
		UserID:    userID,
		Nonce:     base64.RawURLEncoding.EncodeToString(nonce),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil
}

// SealState turns a state into the opaque value sent through the
// authorization redirect. It is encrypted, so the callback can trust the
// user id inside.
func (s *PlatformLinkService) SealState(state *OAuthState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return utils.EncryptAESGCM(string(raw))
}

func (s *PlatformLinkService) OpenState(sealed string) (*OAuthState, error) {
	raw, err := utils.DecryptAESGCM(sealed)
	if err != nil {
		return nil, ErrInvalidState
	}
	var state OAuthState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, ErrInvalidState
	}
	if state.Provider != ProviderDiscord || state.UserID == uuid.Nil || time.Now().After(state.ExpiresAt) {
		return nil, ErrInvalidState
	}
	return &state, nil
}

func (s *PlatformLinkService) AuthURL(state string) (string, error) {
	oauthCfg, err := s.OAuthConfig()
	if err != nil {
		return "", err
	}
	return oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Link exchanges an authorization code and stores the account with its
// profile payload. Tokens are sealed before they are written.
func (s *PlatformLinkService) Link(ctx context.Context, userID uuid.UUID, code string) (*models.LinkedAccount, error) {
	oauthCfg, err := s.OAuthConfig()
	if err != nil {
		return nil, err
	}
	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.WarnWithUser(userID.String(), "platform_oauth_exchange_failed", map[string]interface{}{
			"provider": ProviderDiscord,
			"error":    err.Error(),
		})
		return nil, errors.New("failed to exchange code for token")
	}

	profile, err := s.fetchProfile(ctx, oauthCfg.Client(ctx, token))
	if err != nil {
		return nil, err
	}

	account := models.LinkedAccount{UserID: userID, Provider: ProviderDiscord}
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, ProviderDiscord).
		FirstOrInit(&account).Error; err != nil {
		return nil, err
	}
	account.ExternalID = gjson.GetBytes(profile, "id").String()
	account.ProfileData = datatypes.JSON(profile)
	if err := sealTokens(&account, token); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Save(&account).Error; err != nil {
		return nil, err
	}

	logger.InfoWithUser(userID.String(), "platform_account_linked", map[string]interface{}{
		"provider":    ProviderDiscord,
		"external_id": account.ExternalID,
	})
	return &account, nil
}

func (s *PlatformLinkService) Unlink(ctx context.Context, userID uuid.UUID) error {
	result := s.DB.WithContext(ctx).Unscoped().
		Where("user_id = ? AND provider = ?", userID, ProviderDiscord).
		Delete(&models.LinkedAccount{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlatformNotLinked
	}
	return nil
}

func sealTokens(account *models.LinkedAccount, token *oauth2.Token) error {
	access, err := utils.EncryptAESGCM(token.AccessToken)
	if err != nil {
		return fmt.Errorf("sealing access token: %w", err)
	}
	account.AccessToken = access
	account.RefreshToken = ""
	if token.RefreshToken != "" {
		refresh, err := utils.EncryptAESGCM(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("sealing refresh token: %w", err)
		}
		account.RefreshToken = refresh
	}
	account.ExpiresAt = nil
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.ExpiresAt = &expiry
	}
	return nil
}

func (s *PlatformLinkService) account(ctx context.Context, userID string) (*models.LinkedAccount, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	var account models.LinkedAccount
	err = s.DB.WithContext(ctx).Where("user_id = ? AND provider = ?", uid, ProviderDiscord).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlatformNotLinked
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *PlatformLinkService) fetchProfile(ctx context.Context, client *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.Cfg.APIBaseURL, "/")+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform api returned status %d: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) || gjson.GetBytes(body, "id").String() == "" {
		return nil, errors.New("platform api returned an unexpected profile payload")
	}
	return body, nil
}

// refresh re-reads the live profile with the stored token. The stored
// payload is kept when the platform cannot be reached.
func (s *PlatformLinkService) refresh(ctx context.Context, account *models.LinkedAccount) []byte {
	oauthCfg, err := s.OAuthConfig()
	if err != nil || account.AccessToken == "" {
		return account.ProfileData
	}
	token := &oauth2.Token{
		AccessToken:  utils.DecryptOrPlaintext(account.AccessToken),
		RefreshToken: utils.DecryptOrPlaintext(account.RefreshToken),
		TokenType:    "Bearer",
	}
	if account.ExpiresAt != nil {
		token.Expiry = *account.ExpiresAt
	}

	source := oauthCfg.TokenSource(ctx, token)
	current, err := source.Token()
	if err != nil {
		logger.WarnWithUser(account.UserID.String(), "platform_token_refresh_failed", map[string]interface{}{"error": err.Error()})
		return account.ProfileData
	}

	profile, err := s.fetchProfile(ctx, oauth2.NewClient(ctx, oauth2.StaticTokenSource(current)))
	if err != nil {
		logger.WarnWithUser(account.UserID.String(), "platform_profile_refresh_failed", map[string]interface{}{"error": err.Error()})
		return account.ProfileData
	}

	account.ProfileData = datatypes.JSON(profile)
	if current.AccessToken != token.AccessToken {
		if err := sealTokens(account, current); err != nil {
			return profile
		}
	}
	if err := s.DB.WithContext(ctx).Save(account).Error; err != nil {
		logger.ErrorWithUser(account.UserID.String(), "platform_profile_store_failed", err, nil)
	}
	return profile
}

// PlatformAssets derives platform media from the linked account. A user
// without a linked account has none.
func (s *PlatformLinkService) PlatformAssets(ctx context.Context, userID string) ([]assets.PlatformItem, error) {
	account, err := s.account(ctx, userID)
	if errors.Is(err, ErrPlatformNotLinked) {
		return []assets.PlatformItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return PlatformMedia(s.refresh(ctx, account)), nil
}

// PlatformMedia parses a platform user payload into platform items.
// Animated hashes ("a_" prefix) are served as gif.
func PlatformMedia(profile []byte) []assets.PlatformItem {
	id := gjson.GetBytes(profile, "id").String()
	items := []assets.PlatformItem{}
	if id == "" {
		return items
	}

	image := func(kind, hash string) string {
		ext := "png"
		if strings.HasPrefix(hash, "a_") {
			ext = "gif"
		}
		return fmt.Sprintf("%s/%s/%s/%s.%s", discordCDN, kind, id, hash, ext)
	}

	if hash := gjson.GetBytes(profile, "avatar").String(); hash != "" {
		items = append(items, assets.PlatformItem{Kind: assets.PlatformAvatar, URL: image("avatars", hash), Provider: ProviderDiscord})
	}
	if hash := gjson.GetBytes(profile, "banner").String(); hash != "" {
		items = append(items, assets.PlatformItem{Kind: assets.PlatformBanner, URL: image("banners", hash), Provider: ProviderDiscord})
	}
	if asset := gjson.GetBytes(profile, "avatar_decoration_data.asset").String(); asset != "" {
		items = append(items, assets.PlatformItem{
			Kind:     assets.PlatformDecoration,
			URL:      fmt.Sprintf("%s/avatar-decoration-presets/%s.png", discordCDN, asset),
			Provider: ProviderDiscord,
		})
	}
	return items
}

// UserPresence is the stored platform identity shown in user presence
// mode. Status is "offline" unless the stored payload carries one.
func (s *PlatformLinkService) UserPresence(ctx context.Context, userID string) (*render.UserPresence, error) {
	account, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := gjson.ParseBytes(account.ProfileData)
	username := profile.Get("global_name").String()
	if username == "" {
		username = profile.Get("username").String()
	}
	if username == "" {
		return nil, ErrPlatformNotLinked
	}

	status := profile.Get("status").String()
	if status == "" {
		status = "offline"
	}
	presence := &render.UserPresence{
		Username: username,
		Status:   status,
		Activity: profile.Get("activity.name").String(),
	}
	for _, item := range PlatformMedia(account.ProfileData) {
		if item.Kind == assets.PlatformAvatar {
			presence.AvatarURL = item.URL
		}
	}
	return presence, nil
}

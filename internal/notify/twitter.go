package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dghubble/oauth1"
	"github.com/sirupsen/logrus"

	"solana-sales-bot/internal/logging"
)

// Twitter API roots.
const (
	TwitterUploadBaseURL = "https://upload.twitter.com/1.1"
	TwitterAPIBaseURL    = "https://api.twitter.com/2"
)

// TwitterOptions configures a TwitterSender. All four credentials are
// required.
type TwitterOptions struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	UploadBaseURL  string
	APIBaseURL     string
	Logger         *logrus.Entry
}

// TwitterSender posts secondary announcements: the banner is uploaded as
// media and attached to a new post. Requests are OAuth1 signed.
type TwitterSender struct {
	lifecycle
	opts      TwitterOptions
	uploadURL string
	apiURL    string
	http      *http.Client
	log       *logrus.Entry
}

var (
	_ Session         = (*TwitterSender)(nil)
	_ SecondarySender = (*TwitterSender)(nil)
)

// NewTwitterSender creates an unopened sender.
func NewTwitterSender(opts TwitterOptions) *TwitterSender {
	upload := opts.UploadBaseURL
	if upload == "" {
		upload = TwitterUploadBaseURL
	}
	api := opts.APIBaseURL
	if api == "" {
		api = TwitterAPIBaseURL
	}
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("notify")
	}
	return &TwitterSender{
		opts:      opts,
		uploadURL: strings.TrimRight(upload, "/"),
		apiURL:    strings.TrimRight(api, "/"),
		log:       log.WithField("channel", "twitter"),
	}
}

// Name implements SecondarySender.
func (t *TwitterSender) Name() string { return "twitter" }

// State implements Session.
func (t *TwitterSender) State() State { return t.current() }

// Open checks credentials and builds the signing client. There is no remote
// handshake.
func (t *TwitterSender) Open(ctx context.Context) error {
	return t.open(ctx, func(ctx context.Context) error {
		o := t.opts
		if o.ConsumerKey == "" || o.ConsumerSecret == "" || o.AccessToken == "" || o.AccessSecret == "" {
			return fmt.Errorf("twitter: consumer key/secret and access token/secret are required")
		}
		cfg := oauth1.NewConfig(o.ConsumerKey, o.ConsumerSecret)
		// The signing client must outlive ctx, which only scopes Open.
		t.http = cfg.Client(context.Background(), oauth1.NewToken(o.AccessToken, o.AccessSecret))
		t.log.Info("twitter session ready")
		return nil
	})
}

// Close implements Session.
func (t *TwitterSender) Close() error {
	t.close()
	return nil
}

// SendSecondary uploads the artifact and posts p.Text() with it.
func (t *TwitterSender) SendSecondary(ctx context.Context, p SecondaryPayload) error {
	if err := t.ready(); err != nil {
		return err
	}
	if len(p.Artifact.Data) == 0 {
		return fmt.Errorf("twitter send %s: %w", p.Signature, ErrMissingArtifact)
	}

	mediaID, err := t.uploadMedia(ctx, p.Artifact.Data)
	if err != nil {
		return fmt.Errorf("twitter media upload %s: %w", p.Signature, err)
	}

	tweetID, err := t.createTweet(ctx, p.Text(), mediaID)
	if err != nil {
		return fmt.Errorf("twitter post %s: %w", p.Signature, err)
	}
	t.log.WithFields(logrus.Fields{"signature": p.Signature, "tweet_id": tweetID}).Debug("tweet posted")
	return nil
}

func (t *TwitterSender) uploadMedia(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("media", "banner.png")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.WriteField("media_category", "tweet_image"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL+"/media/upload.json", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := t.do(req, &resp); err != nil {
		return "", err
	}
	if resp.MediaIDString == "" {
		return "", fmt.Errorf("upload response missing media_id_string")
	}
	return resp.MediaIDString, nil
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

func (t *TwitterSender) createTweet(ctx context.Context, text, mediaID string) (string, error) {
	payload, err := json.Marshal(tweetRequest{Text: text, Media: &tweetMedia{MediaIDs: []string{mediaID}}})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := t.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

func (t *TwitterSender) do(req *http.Request, out interface{}) error {
	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Service: "twitter", Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package system

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var _ inkyprovd.IcloudApplier = &IcloudValidator{}

const icloudCaldavEndpoint = "https://caldav.icloud.com/"

// IcloudValidator checks an app-specific password against Apple's CalDAV
// root before the wizard accepts it. The credentials are used for one
// probe request and not retained here.
type IcloudValidator struct {
	client *resty.Client
}

func NewIcloudValidator() *IcloudValidator {
	client := resty.New()
	client.SetBaseURL(icloudCaldavEndpoint)
	return &IcloudValidator{client: client}
}

func (t *IcloudValidator) Validate(ctx context.Context, creds inkyprovd.IcloudCredentials) error {
	if creds.Username == "" || creds.AppPassword == "" {
		return fmt.Errorf("icloud username and app password are required")
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBasicAuth(creds.Username, creds.AppPassword).
		SetHeader("Depth", "0").
		SetBody(`<?xml version="1.0" encoding="utf-8"?><propfind xmlns="DAV:"><prop><current-user-principal/></prop></propfind>`).
		Execute("PROPFIND", "")
	if err != nil {
		return fmt.Errorf("caldav service unreachable: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("icloud rejected the app-specific password")
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("caldav probe failed: status %d", resp.StatusCode())
	}
	return nil
}

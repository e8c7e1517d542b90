package internal

import (
	"context"
	"net/url"

	"github.com/frankli0324/go-httb/internal/model"
)

func isRedirect(code int) bool {
	switch code {
	case 301, 302, 307, 308:
		return true
	}
	return false
}

// follow runs attempt and re-executes it while the response redirects,
// at most MaxBounces times. Method and body are replayed unchanged.
// Every attempt gets its own copy of the request.
func (c *Client) follow(ctx context.Context, req *model.Request, attempt Handler) *model.Response {
	o := c.options()
	resp := attempt(ctx, req.Clone())
	if !o.FollowRedirects {
		return resp
	}
	for bounces := 0; bounces < o.MaxBounces && isRedirect(resp.Code); bounces++ {
		loc := resp.Header.Get("Location")
		if loc == "" {
			return resp
		}
		next := req.Clone()
		next.ParseURL(resolveLocation(req, loc))
		o.Logger.Debug().Int("code", resp.Code).Str("from", req.URL()).Str("to", next.URL()).Msg("following redirect")
		o.Metrics.Redirected()
		req = next
		resp = attempt(ctx, req.Clone())
	}
	return resp
}

// resolveLocation turns a Location value into an absolute URL based on
// the request that received it. The fragment is dropped.
func resolveLocation(base *model.Request, loc string) string {
	ref, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	u, err := url.Parse(base.URL())
	if err != nil {
		return loc
	}
	u = u.ResolveReference(ref)
	u.Fragment, u.RawFragment = "", ""
	return u.String()
}

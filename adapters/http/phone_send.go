package authhttp

import (
	"net/http"

	"github.com/open-rails/otpkit/core"
)

type sendResp struct {
	OK           bool   `json:"ok"`
	Token        string `json:"token"`
	ExpiresInSec int    `json:"expiresInSec"`
}

func (s *Service) handlePhoneSendPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLPhoneSend) {
		tooMany(w)
		return
	}

	var req struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	res, err := s.svc.SendCode(r.Context(), req.Phone)
	if err != nil {
		if kind, ok := core.KindOf(err); ok {
			sendFail(w, kind)
			return
		}
		serverErr(w)
		return
	}

	writeJSON(w, http.StatusOK, sendResp{
		OK:           true,
		Token:        res.Token,
		ExpiresInSec: int(res.ExpiresIn.Seconds()),
	})
}

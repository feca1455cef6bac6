package authhttp

import (
	"net/http"

	"github.com/open-rails/otpkit/core"
)

type verifyResp struct {
	OK                  bool   `json:"ok"`
	SessionToken        string `json:"sessionToken"`
	SessionExpiresInSec int    `json:"sessionExpiresInSec"`
	Message             string `json:"message"`
}

func (s *Service) handlePhoneVerifyPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLPhoneVerify) {
		tooMany(w)
		return
	}

	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	res, err := s.svc.VerifyCode(r.Context(), req.Phone, req.Code, req.Token)
	if err != nil {
		if kind, ok := core.KindOf(err); ok {
			sendFail(w, kind)
			return
		}
		serverErr(w)
		return
	}

	writeJSON(w, http.StatusOK, verifyResp{
		OK:                  true,
		SessionToken:        res.SessionToken,
		SessionExpiresInSec: int(res.ExpiresIn.Seconds()),
		Message:             "phone verified",
	})
}

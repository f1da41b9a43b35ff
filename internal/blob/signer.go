package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Signer はブロブへの期限付き署名付き読み取りURLを発行・検証する。
// 署名はHMAC-SHA256(path + "\n" + expiry)で、検証は定数時間比較で行う。
type Signer struct {
	secret  []byte
	baseURL string
}

// NewSigner はSignerを生成する。baseURLは末尾スラッシュなしで指定する。
func NewSigner(secret, baseURL string) *Signer {
	return &Signer{secret: []byte(secret), baseURL: baseURL}
}

// SignedReadURL は指定ハンドルへの期限付き読み取りURLを返す。
func (s *Signer) SignedReadURL(handle Handle, expiry time.Duration) (string, error) {
	if handle.Path == "" {
		return "", fmt.Errorf("empty object path")
	}

	exp := time.Now().Add(expiry).Unix()
	sig := s.sign(handle.Path, exp)

	q := url.Values{}
	q.Set("path", handle.Path)
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", sig)

	return s.baseURL + "/assets/get?" + q.Encode(), nil
}

// VerifyReadURL は署名と期限を検証する。
// 署名不一致または期限切れの場合はfalseを返す。
func (s *Signer) VerifyReadURL(path string, exp int64, sig string) bool {
	if time.Now().Unix() > exp {
		return false
	}
	expected := s.sign(path, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) sign(path string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(path))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

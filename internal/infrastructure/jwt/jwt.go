// Package jwt issues and validates the RS256 tokens guarding the admin
// surface (allow-list edits and reload triggers).
package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jcanyelles/mosaic/internal/infrastructure/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoPublicKey  = errors.New("public key not configured")
	ErrNoPrivateKey = errors.New("private key not configured")
)

type AdminClaims struct {
	jwt.RegisteredClaims
}

type Service struct {
	publicKey  *rsa.PublicKey
	privateKey *rsa.PrivateKey
	issuer     string
	ttl        time.Duration
}

func NewService(cfg *config.Config) (*Service, error) {
	s := &Service{
		issuer: cfg.AdminJWTIssuer,
		ttl:    cfg.AdminJWTTTL,
	}

	if cfg.AdminJWTPublicKey != "" {
		pubKey, err := parseRSAPublicKey(cfg.AdminJWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		s.publicKey = pubKey
	}

	if cfg.AdminJWTPrivateKey != "" {
		privKey, err := parseRSAPrivateKey(cfg.AdminJWTPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		s.privateKey = privKey

		if s.publicKey == nil {
			s.publicKey = &privKey.PublicKey
		}
	}

	return s, nil
}

func NewServiceWithKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		ttl:        ttl,
	}
}

// GenerateAdminToken signs a short-lived token for an admin caller.
func (s *Service) GenerateAdminToken(subject string) (string, error) {
	if s.privateKey == nil {
		return "", ErrNoPrivateKey
	}

	now := time.Now()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}

// ValidateAdminToken verifies signature, issuer and expiry and returns the
// token's subject.
func (s *Service) ValidateAdminToken(tokenString string) (string, error) {
	if s.publicKey == nil {
		return "", ErrNoPublicKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func parseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		if cert, certErr := x509.ParseCertificate(block.Bytes); certErr == nil {
			pub = cert.PublicKey
		} else {
			return nil, err
		}
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return rsaKey, nil
}

// Package jwt emite y valida los tokens HS256 del API.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims claims registrados más los propios del servicio: usuario, empresa
// emisora y el rol con el que el middleware autoriza sin consultar la base.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"` // "admin" | "operador" | "erp"
}

// Generate firma un token con vigencia de expMinutes contados desde ahora.
func Generate(secret, userID, companyID, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", errors.New("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y vigencia y devuelve userID, companyID y role. El
// algoritmo queda restringido a HS256: un token firmado con otro método se
// rechaza aunque la firma cuadre.
func Parse(secret, tokenString string) (userID, companyID, role string, err error) {
	if secret == "" {
		return "", "", "", errors.New("jwt: secret vacío")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", "", "", err
	}
	if !token.Valid {
		return "", "", "", errors.New("jwt: token inválido")
	}
	return claims.UserID, claims.CompanyID, claims.Role, nil
}

package service

import (
	"errors"

	"github.com/contactlearncert-blip/prospection/pkg/identity"
)

// AuthOp tells which screen an auth error is shown on; only the generic
// fallback title differs.
type AuthOp int

const (
	OpSignIn AuthOp = iota
	OpSignUp
)

// AuthError is an authentication failure with its user-facing French copy.
type AuthError struct {
	Code        string `json:"error"`
	Title       string `json:"title"`
	Description string `json:"description"`
	err         error
}

func (e *AuthError) Error() string { return e.Code }

func (e *AuthError) Unwrap() error { return e.err }

const genericDescription = "Une erreur s'est produite. Veuillez réessayer."

// NewAuthError maps err to an AuthError. Codes without dedicated copy get the
// generic message for op.
func NewAuthError(op AuthOp, err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}

	code := identity.CodeOf(err)
	e := &AuthError{Code: code, err: err}
	switch code {
	case identity.CodeUserNotFound, identity.CodeWrongPassword, identity.CodeInvalidCredential:
		e.Title = "Identifiants invalides"
		e.Description = "L'email ou le mot de passe est incorrect."
	case identity.CodePopupClosedByUser:
		e.Title = "Fenêtre fermée"
		e.Description = "La fenêtre de connexion a été fermée avant la fin de l'opération."
	case identity.CodeAccountExistsWithDifferentCredential:
		e.Title = "Compte existant"
		e.Description = "Un compte existe déjà avec cet email. Essayez de vous connecter avec un autre fournisseur."
	case identity.CodeEmailAlreadyInUse:
		e.Title = "Email déjà utilisé"
		e.Description = "Cet email est déjà associé à un compte."
	case identity.CodeInvalidEmail:
		e.Title = "Email invalide"
		e.Description = "Veuillez saisir une adresse email valide."
	case identity.CodeWeakPassword:
		e.Title = "Mot de passe trop court"
		e.Description = "Le mot de passe doit contenir au moins 6 caractères."
	default:
		if e.Code == "" {
			e.Code = identity.CodeInternal
		}
		e.Title = "Erreur de connexion"
		if op == OpSignUp {
			e.Title = "Erreur d'inscription"
		}
		e.Description = genericDescription
	}
	return e
}

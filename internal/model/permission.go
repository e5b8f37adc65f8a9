package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionQuestionsUpload allows replacing the question bank.
	PermissionQuestionsUpload Permission = "questions:upload"

	// PermissionQuestionsRead allows viewing bank statistics.
	PermissionQuestionsRead Permission = "questions:read"

	// PermissionUsersRead allows viewing user lists.
	PermissionUsersRead Permission = "users:read"

	// PermissionUsersWrite allows creating users and resetting passwords.
	PermissionUsersWrite Permission = "users:write"

	// PermissionAttemptsTake allows starting and answering tests.
	PermissionAttemptsTake Permission = "attempts:take"
)

// AdminPermissions are granted to users with the admin flag.
var AdminPermissions = []Permission{
	PermissionQuestionsUpload,
	PermissionQuestionsRead,
	PermissionUsersRead,
	PermissionUsersWrite,
	PermissionAttemptsTake,
}

// LearnerPermissions are granted to every other user.
var LearnerPermissions = []Permission{
	PermissionAttemptsTake,
}

// PermissionsFor returns the permission codes for a user.
func PermissionsFor(u *User) []string {
	perms := LearnerPermissions
	if u.IsAdmin {
		perms = AdminPermissions
	}
	codes := make([]string, len(perms))
	for i, p := range perms {
		codes[i] = string(p)
	}
	return codes
}

package util

// ContextUserKey is where AuthMiddleware stores the verified identity.
const ContextUserKey = "user"

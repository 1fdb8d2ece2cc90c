// Package swagger registers a hand-maintained OpenAPI document for the
// HTTP surface. The document is served through gin-swagger in
// non-production environments.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TutorHub API",
        "description": "Tutoring reservation backend: course enrollment, meeting booking and teaching-request workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Registration and token lifecycle"},
        {"name": "Users", "description": "Profile and schedule export"},
        {"name": "Courses", "description": "Course catalog and enrollment"},
        {"name": "Meetings", "description": "Meeting slots and bookings"},
        {"name": "Teaching Requests", "description": "Student to teacher role transitions"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new student account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email is already taken"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for an access and refresh token pair",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Token revoked or expired"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the presented refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current account",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update profile fields",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/me/email": {
            "put": {
                "tags": ["Users"],
                "summary": "Change account email",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Password is incorrect"},
                    "409": {"description": "Email is already taken"}
                }
            }
        },
        "/users/me/password": {
            "put": {
                "tags": ["Users"],
                "summary": "Change password and revoke active sessions",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Password is incorrect"}
                }
            }
        },
        "/users/me/schedule/export": {
            "get": {
                "tags": ["Users"],
                "summary": "Download the personal schedule as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/me/schedule/exports": {
            "post": {
                "tags": ["Users"],
                "summary": "Queue a background schedule export",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/users/me/schedule/exports/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Status of a queued export job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Export job does not exist"}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Users"],
                "summary": "Download a finished export via signed token",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Invalid or expired download token"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "Course catalog",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Caller is not a teacher"}
                }
            }
        },
        "/courses/mine": {
            "get": {
                "tags": ["Courses"],
                "summary": "Courses taught or enrolled in, depending on role",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses/{id}": {
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete an owned course with its meetings and memberships",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Course belongs to another teacher"}
                }
            }
        },
        "/courses/{id}/enroll": {
            "post": {
                "tags": ["Courses"],
                "summary": "Enroll in a course",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Already enrolled"}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Leave a course and release booked meetings",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/courses/{id}/meetings": {
            "get": {
                "tags": ["Meetings"],
                "summary": "Meetings of a course",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/meetings": {
            "post": {
                "tags": ["Meetings"],
                "summary": "Open a meeting slot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Overlapping meeting"}
                }
            }
        },
        "/meetings/mine": {
            "get": {
                "tags": ["Meetings"],
                "summary": "Meetings taught or booked, depending on role",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/meetings/{id}": {
            "delete": {
                "tags": ["Meetings"],
                "summary": "Cancel an owned meeting",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/meetings/{id}/claim": {
            "post": {
                "tags": ["Meetings"],
                "summary": "Book a free meeting slot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Meeting has already been booked"}
                }
            },
            "delete": {
                "tags": ["Meetings"],
                "summary": "Give up a booked meeting",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/teaching-requests": {
            "post": {
                "tags": ["Teaching Requests"],
                "summary": "Apply for the teacher role",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Teaching request already exists"}
                }
            },
            "get": {
                "tags": ["Teaching Requests"],
                "summary": "List requests (admin only)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/teaching-requests/{id}": {
            "put": {
                "tags": ["Teaching Requests"],
                "summary": "Approve or reject a pending request (admin only)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Request already decided"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

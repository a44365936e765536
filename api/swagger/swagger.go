package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Timetable API",
        "description": "Weekly timetable planning with an external constraint solver",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "ScheduleInstances", "description": "Planning rounds, resource pools and lifecycle"},
        {"name": "Allocation", "description": "Solver runs, payload export and solution import"},
        {"name": "Timetable", "description": "Committed events, manual edits and exports"},
        {"name": "Availability", "description": "Weekly availability templates"},
        {"name": "Courses", "description": "Course masters and activity templates"},
        {"name": "Sections", "description": "Sections and their groups"},
        {"name": "Personnel", "description": "Staff masters"},
        {"name": "Rooms", "description": "Room masters"},
        {"name": "Preferences", "description": "Personnel scheduling preferences"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/schedule-instances": {
            "get": {
                "tags": ["ScheduleInstances"],
                "summary": "List schedule instances",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            },
            "post": {
                "tags": ["ScheduleInstances"],
                "summary": "Create a schedule instance",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/schedule-instances/{id}/solve": {
            "post": {
                "tags": ["Allocation"],
                "summary": "Run the external solver and commit the resulting timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Committed", "schema": {"$ref": "#/definitions/Envelope"}},
                    "423": {"description": "A solve is already in progress"},
                    "502": {"description": "Solver rejected the request or returned an invalid solution"}
                }
            }
        },
        "/schedule-instances/{id}/solver-request": {
            "get": {
                "tags": ["Allocation"],
                "summary": "Export the solver payload without running a solve",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Solver request JSON"}
                }
            }
        },
        "/schedule-instances/{id}/solution": {
            "post": {
                "tags": ["Allocation"],
                "summary": "Import an externally produced solution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Committed", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/timetable/events": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List scheduled events with optional filters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/timetable/free-resources": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List rooms and personnel free in a time window",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/events/{id}/assignment": {
            "patch": {
                "tags": ["Timetable"],
                "summary": "Manually adjust an event's room or personnel",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "423": {"description": "Instance is locked by a running solve"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
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

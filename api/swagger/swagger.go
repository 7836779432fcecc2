package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Schedule generation engine: day templates, term calendars, exceptions and calendar projection",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Terms", "description": "Term calendars and date-level overrides"},
        {"name": "Timetables", "description": "Timetable definitions and day templates"},
        {"name": "Exceptions", "description": "Per-date meeting patches and emergency day moves"},
        {"name": "Calendar", "description": "Generated meetings, projected events and ICS feeds"},
        {"name": "Exports", "description": "Asynchronous schedule exports"}
    ],
    "paths": {
        "/terms": {
            "get": {
                "tags": ["Terms"],
                "summary": "List terms",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "isActive", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Terms"],
                "summary": "Create term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTermRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{id}": {
            "get": {
                "tags": ["Terms"],
                "summary": "Get term",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Terms"],
                "summary": "Update term",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTermRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Terms"],
                "summary": "Delete term",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/terms/{id}/calendar": {
            "get": {
                "tags": ["Terms"],
                "summary": "Project the term calendar",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{id}/overrides": {
            "get": {
                "tags": ["Terms"],
                "summary": "List calendar overrides",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Terms"],
                "summary": "Add a date-level calendar override",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDayOverrideRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/{id}/overrides/{oid}": {
            "delete": {
                "tags": ["Terms"],
                "summary": "Delete a calendar override",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "oid", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/terms/{id}/holidays/import": {
            "post": {
                "tags": ["Terms"],
                "summary": "Import holidays from an ICS feed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportHolidaysRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List timetables",
                "parameters": [
                    {"name": "termId", "in": "query", "type": "string"},
                    {"name": "ownerId", "in": "query", "type": "string"},
                    {"name": "isActive", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Create timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Timetables"],
                "summary": "Update timetable metadata",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/timetables/{id}/template": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List day template entries",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Timetables"],
                "summary": "Replace the full day template",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceTemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/activate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Activate timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/exceptions": {
            "get": {
                "tags": ["Exceptions"],
                "summary": "List exceptions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exceptions"],
                "summary": "Create exception",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExceptionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/exceptions/{eid}": {
            "delete": {
                "tags": ["Exceptions"],
                "summary": "Delete exception",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "eid", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/timetables/{id}/emergency-day": {
            "post": {
                "tags": ["Exceptions"],
                "summary": "Move a closed date's meetings to a substitute date",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EmergencyDayRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/meetings": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Generate meetings for a date range",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "until", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/events": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Project calendar events for a date range",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "until", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/feed.ics": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Download the schedule as an iCalendar feed",
                "produces": ["text/calendar"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "until", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "iCalendar payload"}
                }
            }
        },
        "/timetables/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a schedule export",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{jobId}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Get export job state",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export payload"}
                }
            }
        }
    },
    "definitions": {
        "CreateTermRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "academicYear": {"type": "string"},
                "timezone": {"type": "string"},
                "firstDay": {"type": "string"},
                "lastDay": {"type": "string"},
                "teachingDays": {"type": "array", "items": {"type": "integer"}}
            },
            "required": ["name", "timezone", "firstDay", "lastDay"]
        },
        "UpdateTermRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "academicYear": {"type": "string"},
                "timezone": {"type": "string"},
                "firstDay": {"type": "string"},
                "lastDay": {"type": "string"},
                "teachingDays": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "CreateDayOverrideRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "kind": {"type": "string", "enum": ["ADD_SCHOOLDAY", "REMOVE_SCHOOLDAY", "PIN_DAY_ID"]},
                "dayId": {"type": "string"},
                "comment": {"type": "string"}
            },
            "required": ["date", "kind"]
        },
        "ImportHolidaysRequest": {
            "type": "object",
            "properties": {
                "ics": {"type": "string"}
            },
            "required": ["ics"]
        },
        "TemplateEntryPayload": {
            "type": "object",
            "properties": {
                "axis": {"type": "string", "enum": ["PERIOD", "TIME_SLOT"]},
                "dayId": {"type": "string"},
                "key": {"type": "string"},
                "activityType": {"type": "string"},
                "startTime": {"type": "string"},
                "durationMinutes": {"type": "integer"},
                "position": {"type": "integer"}
            },
            "required": ["axis", "dayId", "key", "startTime", "durationMinutes"]
        },
        "CreateTimetableRequest": {
            "type": "object",
            "properties": {
                "ownerId": {"type": "string"},
                "title": {"type": "string"},
                "termId": {"type": "string"},
                "timezone": {"type": "string"},
                "policy": {"type": "string", "enum": ["SEQUENTIAL", "WEEKDAY"]},
                "dayIds": {"type": "array", "items": {"type": "string"}},
                "firstDay": {"type": "string"},
                "lastDay": {"type": "string"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/TemplateEntryPayload"}}
            },
            "required": ["ownerId", "title", "termId", "timezone", "policy", "dayIds"]
        },
        "UpdateTimetableRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "timezone": {"type": "string"},
                "policy": {"type": "string", "enum": ["SEQUENTIAL", "WEEKDAY"]},
                "dayIds": {"type": "array", "items": {"type": "string"}},
                "firstDay": {"type": "string"},
                "lastDay": {"type": "string"}
            }
        },
        "ReplaceTemplateRequest": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/TemplateEntryPayload"}}
            },
            "required": ["entries"]
        },
        "CreateExceptionRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "kind": {"type": "string", "enum": ["ADD", "REMOVE", "REPLACE"]},
                "periodKey": {"type": "string"},
                "startTime": {"type": "string"},
                "durationMinutes": {"type": "integer"},
                "comment": {"type": "string"}
            },
            "required": ["date", "kind", "periodKey"]
        },
        "EmergencyDayRequest": {
            "type": "object",
            "properties": {
                "closedDate": {"type": "string"},
                "substituteDate": {"type": "string"},
                "comment": {"type": "string"}
            },
            "required": ["closedDate", "substituteDate"]
        },
        "CreateExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]},
                "from": {"type": "string"},
                "until": {"type": "string"}
            },
            "required": ["format", "from", "until"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
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

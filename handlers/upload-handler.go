package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"team-collab/backend/logging"
	"team-collab/backend/middleware"
	"team-collab/backend/models"
	"team-collab/backend/services"
	"team-collab/backend/utils"
)

// maxUploadSize bounds a single uploaded file.
const maxUploadSize = 10 << 20

var allowedMimetypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"text/plain":         true,
	"application/zip":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
}

var avatarMimetypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UploadHandler struct {
	users     *services.UserService
	tasks     *services.TaskService
	projects  *services.ProjectService
	uploadDir string
}

func NewUploadHandler(users *services.UserService, tasks *services.TaskService, projects *services.ProjectService, uploadDir string) *UploadHandler {
	return &UploadHandler{users: users, tasks: tasks, projects: projects, uploadDir: uploadDir}
}

// saveFile stores one multipart file under the upload directory and
// returns the generated filename plus detected size and mimetype.
func (h *UploadHandler) saveFile(r *http.Request, field, subdir string, allowed map[string]bool) (string, string, string, int64, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return "", "", "", 0, models.NewValidationError("file exceeds the %dMB upload limit", maxUploadSize>>20)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", "", 0, models.NewValidationError("file field %q is required", field)
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		return "", "", "", 0, models.NewValidationError("file exceeds the %dMB upload limit", maxUploadSize>>20)
	}

	mimetype := header.Header.Get("Content-Type")
	if !allowed[mimetype] {
		return "", "", "", 0, models.NewValidationError("file type %s is not allowed", mimetype)
	}

	dir := filepath.Join(h.uploadDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", "", 0, models.NewPersistenceError("create upload directory", err)
	}

	filename := utils.GenerateFileName(header.Filename)
	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", "", "", 0, models.NewPersistenceError("create upload file", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(file, maxUploadSize))
	if err != nil {
		return "", "", "", 0, models.NewPersistenceError("write upload file", err)
	}

	return filename, header.Filename, mimetype, written, nil
}

// UploadAvatar stores a profile image and points the user's avatar at it.
func (h *UploadHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	filename, _, _, _, err := h.saveFile(r, "avatar", "avatars", avatarMimetypes)
	if err != nil {
		writeError(w, err)
		return
	}

	avatarPath := "/uploads/avatars/" + filename
	updated, err := h.users.UpdateProfile(r.Context(), user.ID, "", avatarPath)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: AVATAR_UPLOADED, Description: User %s uploaded a new avatar", user.ID.Hex())
	writeData(w, http.StatusOK, "Avatar uploaded successfully", map[string]interface{}{"user": updated})
}

// UploadTaskAttachment stores a file and records it on the task.
func (h *UploadHandler) UploadTaskAttachment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	taskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid task ID"))
		return
	}

	task, err := h.tasks.GetTaskByID(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	project, err := h.projects.GetProjectByID(r.Context(), task.Project)
	if err != nil {
		writeError(w, err)
		return
	}
	if !project.IsMember(user.ID) {
		writeError(w, models.NewAuthorizationError("access denied, you are not a member of this project"))
		return
	}

	filename, originalName, mimetype, size, err := h.saveFile(r, "file", "tasks", allowedMimetypes)
	if err != nil {
		writeError(w, err)
		return
	}

	attachment := models.Attachment{
		Filename:     filename,
		OriginalName: originalName,
		Mimetype:     mimetype,
		Size:         size,
		Path:         "/uploads/tasks/" + filename,
		UploadedBy:   user.ID,
		UploadedAt:   time.Now(),
	}
	if err := h.tasks.AddAttachment(r.Context(), taskID, attachment); err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: ATTACHMENT_UPLOADED, Description: User %s attached %s to task %s",
		user.ID.Hex(), filename, taskID.Hex())
	writeData(w, http.StatusCreated, "Attachment uploaded successfully", map[string]interface{}{"attachment": attachment})
}

// UploadChatFile stores a chat file and returns its attachment descriptor;
// the client then sends the message referencing it.
func (h *UploadHandler) UploadChatFile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	filename, originalName, mimetype, size, err := h.saveFile(r, "file", "chat", allowedMimetypes)
	if err != nil {
		writeError(w, err)
		return
	}

	attachment := models.MessageAttachment{
		Filename:     filename,
		OriginalName: originalName,
		Mimetype:     mimetype,
		Size:         size,
		Path:         "/uploads/chat/" + filename,
	}

	logging.Logger.Infof("Event ID: CHAT_FILE_UPLOADED, Description: User %s uploaded chat file %s", user.ID.Hex(), filename)
	writeData(w, http.StatusCreated, "File uploaded successfully", map[string]interface{}{"attachment": attachment})
}

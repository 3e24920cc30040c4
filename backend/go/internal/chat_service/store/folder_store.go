package store

import (
	"Jarvis_chat/backend/go/internal/models"
	"context"

	"github.com/google/uuid"
)

// FolderUpdate 是文件夹的部分更新。
type FolderUpdate struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
	SetParent   bool
	ParentID    *string
}

// ListFolders 返回用户未归档的文件夹，按 sort_order 升序。
func (s *Store) ListFolders(ctx context.Context, userID uint) ([]models.Folder, error) {
	folders := make([]models.Folder, 0)
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_archived = ?", userID, false).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&folders).Error
	return folders, err
}

// GetFolder 返回属于用户的文件夹。
func (s *Store) GetFolder(ctx context.Context, userID uint, id string) (*models.Folder, error) {
	var f models.Folder
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// CreateFolder 创建文件夹，父文件夹必须属于同一用户。
func (s *Store) CreateFolder(ctx context.Context, f *models.Folder) error {
	if f.ParentID != nil {
		if _, err := s.GetFolder(ctx, f.UserID, *f.ParentID); err != nil {
			return err
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Color == "" {
		f.Color = models.DefaultFolderColor
	}
	if f.Icon == "" {
		f.Icon = models.DefaultFolderIcon
	}
	return s.DB.WithContext(ctx).Create(f).Error
}

// UpdateFolder 部分更新文件夹并返回更新后的记录。
func (s *Store) UpdateFolder(ctx context.Context, userID uint, id string, upd FolderUpdate) (*models.Folder, error) {
	if _, err := s.GetFolder(ctx, userID, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.Color != nil {
		fields["color"] = *upd.Color
	}
	if upd.Icon != nil {
		fields["icon"] = *upd.Icon
	}
	if upd.SetParent {
		if upd.ParentID != nil {
			if err := s.checkParent(ctx, userID, id, *upd.ParentID); err != nil {
				return nil, err
			}
		}
		fields["parent_id"] = upd.ParentID
	}

	if len(fields) > 0 {
		err := s.DB.WithContext(ctx).Model(&models.Folder{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(fields).Error
		if err != nil {
			return nil, err
		}
	}
	return s.GetFolder(ctx, userID, id)
}

// checkParent 确认 parentID 属于用户，并且不是 id 自身或它的后代。
func (s *Store) checkParent(ctx context.Context, userID uint, id, parentID string) error {
	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id || seen[cur] {
			return ErrInvalidParent
		}
		seen[cur] = true
		f, err := s.GetFolder(ctx, userID, cur)
		if err != nil {
			return err
		}
		if f.ParentID == nil {
			break
		}
		cur = *f.ParentID
	}
	return nil
}

// ArchiveFolder 软删除文件夹。
func (s *Store) ArchiveFolder(ctx context.Context, userID uint, id string) error {
	return s.DB.WithContext(ctx).Model(&models.Folder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_archived", true).Error
}

// FolderTree 返回嵌套的文件夹树，每个节点带有未归档会话的数量。
// 父节点已归档或不存在的文件夹作为根节点返回。
func (s *Store) FolderTree(ctx context.Context, userID uint) ([]*models.Folder, error) {
	folders, err := s.ListFolders(ctx, userID)
	if err != nil {
		return nil, err
	}

	var counts []struct {
		FolderID string
		N        int64
	}
	err = s.DB.WithContext(ctx).Model(&models.Chat{}).
		Select("folder_id, COUNT(*) AS n").
		Where("user_id = ? AND is_archived = ? AND folder_id IS NOT NULL", userID, false).
		Group("folder_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	countByID := make(map[string]int64, len(counts))
	for _, c := range counts {
		countByID[c.FolderID] = c.N
	}

	return BuildFolderTree(folders, countByID), nil
}

// BuildFolderTree 按 ParentID 组装树，保留输入顺序。
func BuildFolderTree(folders []models.Folder, chatCounts map[string]int64) []*models.Folder {
	nodes := make(map[string]*models.Folder, len(folders))
	for i := range folders {
		f := folders[i]
		f.Children = []*models.Folder{}
		f.ChatCount = chatCounts[f.ID]
		nodes[f.ID] = &f
	}

	roots := make([]*models.Folder, 0)
	for i := range folders {
		node := nodes[folders[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

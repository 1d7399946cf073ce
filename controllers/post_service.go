package controllers

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/utils"
)

var (
	errSelfFollow = errors.New("users cannot follow themselves")
	errNotAuthor  = errors.New("only the author can change this post")
)

// postService holds the queries and writes shared by the HTML views and the API.
type postService struct {
	db *gorm.DB
}

func newPostService(db *gorm.DB) *postService {
	return &postService{db: db}
}

// recent is the base post listing, newest first.
func (s *postService) recent() *gorm.DB {
	return s.db.Model(&models.Post{}).Order("posts.created_at DESC").Order("posts.id DESC")
}

func (s *postService) byGroup(groupID uint) *gorm.DB {
	return s.recent().Where("posts.group_id = ?", groupID)
}

func (s *postService) byAuthor(authorID uint) *gorm.DB {
	return s.recent().Where("posts.author_id = ?", authorID)
}

// feed lists posts of every author userID follows.
func (s *postService) feed(userID uint) *gorm.DB {
	followed := s.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
	return s.recent().Where("posts.author_id IN (?)", followed)
}

func (s *postService) page(q *gorm.DB, raw string) (*utils.Page[models.Post], error) {
	return utils.Paginate[models.Post](q, raw, config.Get().PostsPerPage, "Author", "Group")
}

// findPost loads a post with its author and group. Ids that do not parse are reported as not found.
func (s *postService) findPost(rawID string) (*models.Post, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var post models.Post
	if err := s.db.Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *postService) findUser(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *postService) findUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *postService) findGroup(slug string) (*models.Group, error) {
	var group models.Group
	if err := s.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *postService) groups() ([]models.Group, error) {
	var groups []models.Group
	err := s.db.Order("title").Find(&groups).Error
	return groups, err
}

func (s *postService) countByAuthor(authorID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.Post{}).Where("author_id = ?", authorID).Count(&n).Error
	return n, err
}

// comments returns the visible comments of a post, oldest first.
func (s *postService) comments(postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.Preload("Author").
		Where("post_id = ? AND active = ?", postID, true).
		Order("created_at").Order("id").
		Find(&comments).Error
	return comments, err
}

// createPost stores the form as a new post by author.
func (s *postService) createPost(author *models.User, form *PostForm) (*models.Post, error) {
	post := &models.Post{Text: form.Text, AuthorID: author.ID, GroupID: form.GroupID}

	stored, err := s.storeImage(form)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		post.Image = stored.Name
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if stored != nil {
			return tx.Create(&models.UploadedFile{FilePath: stored.AbsPath, Name: stored.Name, PostID: &post.ID}).Error
		}
		return nil
	})
	if err != nil {
		s.discard(stored)
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.Author = *author
	return post, nil
}

// updatePost applies the form to post. Only text, group and image change.
func (s *postService) updatePost(post *models.Post, form *PostForm) error {
	stored, err := s.storeImage(form)
	if err != nil {
		return err
	}

	oldImage := post.Image
	post.Text = form.Text
	post.GroupID = form.GroupID
	switch {
	case stored != nil:
		post.Image = stored.Name
	case form.ClearImage:
		post.Image = ""
	}
	post.UpdatedAt = time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		cols := append([]string{"UpdatedAt"}, models.Editable...)
		if err := tx.Model(post).Select(cols).Updates(post).Error; err != nil {
			return err
		}
		if stored != nil {
			if err := tx.Create(&models.UploadedFile{FilePath: stored.AbsPath, Name: stored.Name, PostID: &post.ID}).Error; err != nil {
				return err
			}
		}
		if oldImage != "" && oldImage != post.Image {
			return utils.MarkOrphaned(tx, oldImage, orphanGrace())
		}
		return nil
	})
	if err != nil {
		s.discard(stored)
		post.Image = oldImage
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	post.Group = nil
	if post.GroupID != nil {
		var g models.Group
		if err := s.db.First(&g, *post.GroupID).Error; err == nil {
			post.Group = &g
		}
	}
	return nil
}

// deletePost removes the post and its comments and schedules its image for cleanup.
func (s *postService) deletePost(post *models.Post) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, post.ID).Error; err != nil {
			return err
		}
		return utils.MarkOrphaned(tx, post.Image, orphanGrace())
	})
}

func (s *postService) addComment(post *models.Post, author *models.User, text string) (*models.Comment, error) {
	comment := &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: text, Active: true}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	comment.Author = *author
	return comment, nil
}

// follow subscribes user to author. It is idempotent and reports whether a row was added.
func (s *postService) follow(user, author *models.User) (bool, error) {
	if user.ID == author.ID {
		return false, errSelfFollow
	}
	f := models.Follow{UserID: user.ID, AuthorID: author.ID}
	res := s.db.Where(&models.Follow{UserID: user.ID, AuthorID: author.ID}).FirstOrCreate(&f)
	if res.Error != nil {
		if ok, err := s.isFollowing(user.ID, author.ID); err == nil && ok {
			return false, nil
		}
		return false, fmt.Errorf("follow %s: %w", author.Username, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// unfollow drops the subscription if present and reports whether one existed.
func (s *postService) unfollow(user, author *models.User) (bool, error) {
	res := s.db.Where("user_id = ? AND author_id = ?", user.ID, author.ID).Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("unfollow %s: %w", author.Username, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *postService) isFollowing(userID, authorID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", userID, authorID).Count(&n).Error
	return n > 0, err
}

// following lists the authors userID is subscribed to.
func (s *postService) following(userID uint) ([]models.User, error) {
	var authors []models.User
	err := s.db.Model(&models.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", userID).
		Order("users.username").
		Find(&authors).Error
	return authors, err
}

func (s *postService) storeImage(form *PostForm) (*utils.StoredImage, error) {
	if !form.HasNewImage() {
		return nil, nil
	}
	stored, err := utils.SaveImage(config.Get().MediaRoot, form.Image.Filename, form.imageData)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	return stored, nil
}

func (s *postService) discard(stored *utils.StoredImage) {
	if stored == nil {
		return
	}
	if err := os.Remove(stored.AbsPath); err != nil && !os.IsNotExist(err) {
		utils.Sugar.Warnw("remove unused upload failed", "path", stored.AbsPath, "err", err)
	}
}

func orphanGrace() time.Duration {
	return time.Duration(config.Get().UploadOrphanGraceMinutes) * time.Minute
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() eligibilitydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, student *eligibilitydomain.StudentProfile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO student_profiles (
			id, college_id, full_name, course, cgpa, graduation_year, backlogs, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		student.ID,
		student.CollegeID,
		student.FullName,
		student.Course,
		student.CGPA,
		student.GraduationYear,
		student.Backlogs,
		student.CreatedAt,
		student.UpdatedAt,
	).Error
}

func (r *repo) ListByColleges(ctx context.Context, db *gorm.DB, collegeIDs []snowflake.ID) ([]eligibilitydomain.StudentProfile, error) {
	if len(collegeIDs) == 0 {
		return nil, nil
	}
	var students []eligibilitydomain.StudentProfile
	err := db.WithContext(ctx).Raw(
		`SELECT id, college_id, full_name, course, cgpa, graduation_year, backlogs, created_at, updated_at
		 FROM student_profiles
		 WHERE college_id IN ?
		 ORDER BY id ASC`,
		collegeIDs,
	).Scan(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}
